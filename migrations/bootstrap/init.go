// Package bootstrap registers the minimal users table migrations. Import it
// for side effects when go-auth migrations are not applied by the host.
package bootstrap

import (
	"io/fs"

	staff "github.com/goliatone/go-staff"
	"github.com/goliatone/go-staff/migrations"
)

func init() {
	authFS, err := fs.Sub(staff.GetAuthBootstrapMigrationsFS(), "data/sql/migrations/auth")
	if err != nil {
		return
	}
	migrations.Register(authFS)
}
