package migrate

import (
	"fmt"
	"log/slog"
)

// Registry holds the schema version and upgrade steps of one document kind.
type Registry struct {
	// Name labels the document kind in logs and errors.
	Name string
	// CurrentVersion is the version this build writes.
	CurrentVersion int
	// Migrations are the registered upgrade steps. Tests may replace them.
	Migrations []Migration
}

// Register adds m. It panics when a step for the same version exists.
func (r *Registry) Register(m Migration) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: %s: duplicate migration version %d (description: %q)", r.label(), m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// Stale reports whether a document at fileVersion is older than this build
// writes. Future versions are never stale; see [Registry.IsFuture].
func (r *Registry) Stale(fileVersion int) bool {
	if r.IsFuture(fileVersion) {
		return false
	}
	return fileVersion < r.CurrentVersion || len(Pending(fileVersion, r.Migrations)) > 0
}

// IsFuture reports whether fileVersion was written by a newer build than
// this one. Callers read such files best-effort.
func (r *Registry) IsFuture(fileVersion int) bool {
	return fileVersion > r.CurrentVersion
}

// Run applies the registered steps newer than fromVersion. Errors carry the
// registry name.
func (r *Registry) Run(data []byte, fromVersion int) ([]byte, int, error) {
	out, version, err := run(slog.Default().With("document", r.label()), data, fromVersion, r.Migrations)
	if err != nil {
		return nil, version, fmt.Errorf("%s: %w", r.label(), err)
	}
	return out, version, nil
}

func (r *Registry) label() string {
	if r.Name == "" {
		return "migrate"
	}
	return r.Name
}

// Config is the registry for config.toml.
var Config = &Registry{Name: "config", CurrentVersion: 1}

// State is the registry for the per-account presence files. Version 1 is the
// legacy positional array; the store package registers its upgrade.
var State = &Registry{Name: "state", CurrentVersion: 2}
