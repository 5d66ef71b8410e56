// Package store persists the per-account presence record between runs.
//
// Each tracked account has one small JSON file, replaced whole on every
// write. The current layout is a versioned object:
//
//	{"$version": 2, "statusSince": 1700000000, "status": 1, "estimatedLastActive": null}
//
// Files written by older releases hold a positional array
// [status_since, status] and are upgraded through [migrate.State] on load.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"tools.zach/dev/steamwatch/internal/atomicfile"
	"tools.zach/dev/steamwatch/internal/migrate"
	"tools.zach/dev/steamwatch/internal/paths"
	"tools.zach/dev/steamwatch/internal/presence"
)

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

var (
	// ErrNotFound is returned by [Store.Load] when no record exists yet.
	ErrNotFound = errors.New("no presence record")
	// ErrCorrupted is returned by [Store.Load] when the file exists but
	// cannot be interpreted. The file has been moved aside by then.
	ErrCorrupted = errors.New("corrupted presence record")
)

// ///////////////////////////////////////////////
// File Layout
// ///////////////////////////////////////////////

// fileRecord is the on-disk form of [presence.Record]. Timestamps are unix
// seconds; a null estimate means none.
type fileRecord struct {
	Version             int    `json:"$version"`
	StatusSince         int64  `json:"statusSince"`
	Status              int    `json:"status"`
	EstimatedLastActive *int64 `json:"estimatedLastActive"`
}

func init() {
	migrate.State.Register(migrate.Migration{
		Version:     2,
		Description: "positional array to versioned object",
		Upgrade:     upgradeLegacyArray,
	})
}

// upgradeLegacyArray converts [status_since, status] or
// [status_since, status, estimated_last_active|null] to the v2 object.
func upgradeLegacyArray(data []byte) ([]byte, error) {
	var arr []*float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("decode legacy array: %w", err)
	}
	if len(arr) < 2 || len(arr) > 3 {
		return nil, fmt.Errorf("legacy array has %d elements, want 2 or 3", len(arr))
	}
	if arr[0] == nil || arr[1] == nil {
		return nil, errors.New("legacy array has null status fields")
	}
	rec := fileRecord{
		Version:     2,
		StatusSince: int64(*arr[0]),
		Status:      int(*arr[1]),
	}
	if len(arr) == 3 && arr[2] != nil {
		est := int64(*arr[2])
		rec.EstimatedLastActive = &est
	}
	return json.Marshal(rec)
}

// peekVersion returns the schema version of raw file contents. A JSON array
// is the legacy layout; an object without "$version" is treated as current.
func peekVersion(data []byte) (int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0, errors.New("empty file")
	}
	switch trimmed[0] {
	case '[':
		return 1, nil
	case '{':
		var v struct {
			Version int `json:"$version"`
		}
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return 0, fmt.Errorf("decode version: %w", err)
		}
		if v.Version == 0 {
			return migrate.State.CurrentVersion, nil
		}
		return v.Version, nil
	default:
		return 0, fmt.Errorf("unexpected leading byte %q", trimmed[0])
	}
}

// ///////////////////////////////////////////////
// Store
// ///////////////////////////////////////////////

// Store reads and writes one account's presence record. It implements
// [presence.Saver].
type Store struct {
	path string
	log  *slog.Logger
}

// New returns the store for steamID inside dir. log defaults to
// [slog.Default].
func New(dir paths.DataDir, steamID string, log *slog.Logger) *Store {
	return Open(dir.State(steamID), log)
}

// Open returns a store backed by an explicit file path.
func Open(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{path: path, log: log}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the record. It never panics on bad data: a missing file yields
// [ErrNotFound]; an unreadable or invalid one is moved to
// <file>.corrupted and yields an error wrapping [ErrCorrupted]. In both
// cases the record is nil and the caller starts fresh.
func (s *Store) Load() (*presence.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read presence record: %w", err)
	}

	rec, err := s.decode(data)
	if err != nil {
		if dst, mvErr := atomicfile.MoveAside(s.path, paths.CorruptedExt); mvErr != nil {
			s.log.Warn("failed to move corrupted presence record aside", "path", s.path, "error", mvErr)
		} else {
			s.log.Warn("presence record moved aside", "backup", dst)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return rec, nil
}

// decode upgrades data to the current layout and validates it.
func (s *Store) decode(data []byte) (*presence.Record, error) {
	version, err := peekVersion(data)
	if err != nil {
		return nil, err
	}
	if migrate.State.IsFuture(version) {
		s.log.Warn("presence record written by a newer version, reading best-effort", "version", version)
	} else if migrate.State.Stale(version) {
		data, _, err = migrate.State.Run(data, version)
		if err != nil {
			return nil, err
		}
	}

	var fr fileRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, fmt.Errorf("decode presence record: %w", err)
	}
	status := presence.Status(fr.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("status %d out of range", fr.Status)
	}
	if fr.StatusSince <= 0 {
		return nil, fmt.Errorf("statusSince %d is not a timestamp", fr.StatusSince)
	}

	rec := &presence.Record{
		Status:      status,
		StatusSince: time.Unix(fr.StatusSince, 0),
	}
	if fr.EstimatedLastActive != nil && *fr.EstimatedLastActive > 0 && status.Idle() {
		rec.EstimatedLastActive = time.Unix(*fr.EstimatedLastActive, 0)
	}
	return rec, nil
}

// Save replaces the record on disk.
func (s *Store) Save(r presence.Record) error {
	fr := fileRecord{
		Version:     migrate.State.CurrentVersion,
		StatusSince: r.StatusSince.Unix(),
		Status:      int(r.Status),
	}
	if !r.EstimatedLastActive.IsZero() && r.Status.Idle() {
		est := r.EstimatedLastActive.Unix()
		fr.EstimatedLastActive = &est
	}
	if err := atomicfile.WriteJSON(s.path, fr, 0o644); err != nil {
		return fmt.Errorf("save presence record: %w", err)
	}
	return nil
}
