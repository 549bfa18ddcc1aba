// Package migrations embeds the SQL schema migrations applied by goose
// during database initialization. Files follow the goose naming convention
// YYYYMMDDHHMMSS_description.sql and run in order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
