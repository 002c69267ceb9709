package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema and seed step, applied in name order.
var Migrations = migrate.NewMigrations()
