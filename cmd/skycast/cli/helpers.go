package cli

import (
	"os"

	"github.com/google/uuid"

	"github.com/skycastd/skycast/internal/model"
	"github.com/skycastd/skycast/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// SKYCAST_DATA_DIR env var, or ~/.skycast as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("SKYCAST_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.skycast"
}

// openStore opens the SQLite store, defaulting to ~/.skycast if no data dir
// was specified.
func openStore() (*store.Store, error) {
	return store.New(resolveDataDir())
}

// newDeviceID mints the public identifier for a device.
func newDeviceID() string {
	return uuid.NewString()
}

// hasAdminAccount reports whether any of the users holds the admin role.
func hasAdminAccount(users []model.User) bool {
	for _, u := range users {
		if u.Role == model.RoleAdmin {
			return true
		}
	}
	return false
}
