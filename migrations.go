package staff

import "embed"

// MigrationsFS holds every go-staff migration, dialect aware:
//   - data/sql/migrations/*.sql are the PostgreSQL sources
//   - data/sql/migrations/sqlite/*.sql override them on SQLite
//   - data/sql/migrations/auth carries a minimal users table for hosts
//     that do not run go-auth migrations themselves
//
// Usage:
//
//	coreFS, _ := fs.Sub(staff.GetCoreMigrationsFS(), "data/sql/migrations")
//	client.RegisterDialectMigrations(
//	    coreFS,
//	    persistence.WithDialectSourceLabel("."),
//	    persistence.WithValidationTargets("postgres", "sqlite"),
//	)
//
//go:embed data/sql/migrations
var MigrationsFS embed.FS

//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var coreMigrationsFS embed.FS

//go:embed data/sql/migrations/auth
var authBootstrapMigrationsFS embed.FS

// GetCoreMigrationsFS returns the profiles, invitation_attempts and
// staff_activity migrations.
func GetCoreMigrationsFS() embed.FS {
	return coreMigrationsFS
}

// GetAuthBootstrapMigrationsFS returns the users table migrations used when
// go-auth does not own the schema.
func GetAuthBootstrapMigrationsFS() embed.FS {
	return authBootstrapMigrationsFS
}
