package db

import (
	"github.com/pkg/errors"

	"github.com/nexuslabs/nexus/internal/profile"
	"github.com/nexuslabs/nexus/store"
	"github.com/nexuslabs/nexus/store/db/postgres"
	"github.com/nexuslabs/nexus/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		return postgres.NewDB(profile)
	case "sqlite":
		return sqlite.NewDB(profile)
	}
	return nil, errors.Errorf("unknown db driver: %q", profile.Driver)
}
