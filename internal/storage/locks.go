package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TryAcquireAdvisoryLock attempts a session advisory lock without blocking.
// Batch jobs take one so only a single instance runs a given batch.
//
// The lock is taken on a dedicated connection checked out of the pool and
// the connection stays checked out until release. Running lock and unlock
// through the pool directly would land them on different sessions: the
// unlock would silently fail and the lock would stay held by an idle
// pooled connection.
func (db *DB) TryAcquireAdvisoryLock(ctx context.Context, lockID int64) (bool, error) {
	db.lockMu.Lock()
	_, held := db.lockConns[lockID]
	db.lockMu.Unlock()

	if held {
		return false, nil
	}

	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection for advisory lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired); err != nil {
		conn.Release()

		return false, fmt.Errorf("try acquire advisory lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return false, nil
	}

	db.lockMu.Lock()
	if db.lockConns == nil {
		db.lockConns = make(map[int64]*pgxpool.Conn)
	}

	db.lockConns[lockID] = conn
	db.lockMu.Unlock()

	return true, nil
}

// ReleaseAdvisoryLock unlocks on the same connection the lock was taken on
// and returns that connection to the pool.
func (db *DB) ReleaseAdvisoryLock(ctx context.Context, lockID int64) error {
	db.lockMu.Lock()
	conn, held := db.lockConns[lockID]
	delete(db.lockConns, lockID)
	db.lockMu.Unlock()

	if !held {
		return fmt.Errorf("advisory lock %d is not held", lockID)
	}

	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, lockID); err != nil {
		return fmt.Errorf("release advisory lock: %w", err)
	}

	return nil
}
