// Package migrations embeds the goose SQL migrations, one directory per
// database dialect.
package migrations

import "embed"

// Postgres holds the migrations for the pgx driver.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the migrations for the modernc sqlite driver.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
