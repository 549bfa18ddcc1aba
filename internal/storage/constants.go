package db

import "time"

// Advisory lock IDs for batch jobs. Distinct from migrationLockID.
const (
	// HeatRecomputeLockID serializes the catalog-wide heat recompute.
	HeatRecomputeLockID int64 = 48201
	// RecommendationBatchLockID serializes the all-users recommendation pass.
	RecommendationBatchLockID int64 = 48202
)

// Database connection constants
const (
	// ConnectionRetrySleep is the sleep duration between connection retries
	ConnectionRetrySleep = 2 * time.Second
	// maxConnectionRetries is the number of retries for initial connection
	maxConnectionRetries = 10
)

// Database pool default constants
const (
	defaultMaxConns          int32         = 25
	defaultMinConns          int32         = 5
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute
)

// User status values. Only normal users take part in batch recommendation
// generation.
const UserStatusNormal = "normal"
