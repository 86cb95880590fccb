// Package migrations holds the schema migration set, applied through the
// migrate CLI command or at server startup.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
