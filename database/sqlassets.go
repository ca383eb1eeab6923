package sqlassets

import "embed"

// MigrationFS holds the versioned schema migrations applied by golang-migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS

// MigrationsDir is the directory inside MigrationFS that holds the migration files.
const MigrationsDir = "migrations"
