// Package migrate upgrades versioned on-disk documents one schema version at
// a time. The config file and the per-account presence files each have their
// own [Registry].
package migrate

import (
	"fmt"
	"log/slog"
	"slices"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Migration upgrades a document to Version from the version before it.
type Migration struct {
	// Version is the schema version this migration produces.
	Version int
	// Description labels the step in log output.
	Description string
	// Upgrade transforms the raw document.
	Upgrade func(data []byte) ([]byte, error)
}

// ///////////////////////////////////////////////
// Public API
// ///////////////////////////////////////////////

// Pending returns the migrations newer than fromVersion, oldest first.
func Pending(fromVersion int, migrations []Migration) []Migration {
	var out []Migration
	for _, m := range migrations {
		if m.Version > fromVersion {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out
}

// run applies the pending migrations in order and returns the upgraded data
// and the version reached. On failure the version is the last one applied.
func run(log *slog.Logger, data []byte, fromVersion int, migrations []Migration) ([]byte, int, error) {
	version := fromVersion
	for _, m := range Pending(fromVersion, migrations) {
		log.Info("applying migration", "version", m.Version, "description", m.Description)
		out, err := m.Upgrade(data)
		if err != nil {
			return nil, version, fmt.Errorf("migration to v%d failed: %w", m.Version, err)
		}
		data, version = out, m.Version
	}
	return data, version, nil
}
