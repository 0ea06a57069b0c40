package cardpost

import "embed"

// MigrationsFS holds the PostgreSQL schema migrations applied by repository.RunMigrations.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
