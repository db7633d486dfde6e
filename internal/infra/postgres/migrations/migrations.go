// Package migrations holds the Postgres schema as embedded SQL.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
