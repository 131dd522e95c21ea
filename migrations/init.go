package migrations

import (
	"io/fs"

	staff "github.com/goliatone/go-staff"
)

func init() {
	coreFS, err := fs.Sub(staff.GetCoreMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return
	}
	Register(coreFS)
}
