// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names. Per-account files embed the SteamID64.
const (
	ConfigFile     = "config.toml"
	EnvFile        = ".env"
	CorruptedExt   = ".corrupted"
	BinaryName     = "steamwatch"
	DataDirRel     = ".steamwatch" // relative to $HOME
	DataDirEnvVar  = "STEAMWATCH_DATA_DIR"
	statePrefix    = "state."
	logPrefix      = "steamwatch_"
	pidPrefix      = "steamwatch."
	csvDefaultBase = "steamwatch_"
)

// StateFileFor returns the presence record file name for an account.
// For example, StateFileFor("76561197960287930") returns
// "state.76561197960287930.json".
func StateFileFor(steamID string) string {
	return statePrefix + steamID + ".json"
}

// LogFileFor returns the log file name for an account.
func LogFileFor(steamID string) string {
	return logPrefix + steamID + ".log"
}

// PIDFileFor returns the lock file name for an account.
func PIDFileFor(steamID string) string {
	return pidPrefix + steamID + ".pid"
}

// CSVFileFor returns the default CSV file name for an account.
func CSVFileFor(steamID string) string {
	return csvDefaultBase + steamID + ".csv"
}

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Default returns the data directory from $STEAMWATCH_DATA_DIR, falling back
// to ~/.steamwatch and then to the working directory.
func Default() DataDir {
	if dir := os.Getenv(DataDirEnvVar); dir != "" {
		return DataDir{Root: dir}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return DataDir{Root: filepath.Join(home, DataDirRel)}
	}
	return DataDir{Root: "."}
}

// Ensure creates the data directory if it does not exist.
func (d DataDir) Ensure() error {
	return os.MkdirAll(d.Root, 0o755)
}

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Env returns the full path to the .env secrets file.
func (d DataDir) Env() string { return filepath.Join(d.Root, EnvFile) }

// State returns the full path to an account's presence record.
func (d DataDir) State(steamID string) string {
	return filepath.Join(d.Root, StateFileFor(steamID))
}

// Log returns the full path to an account's log file.
func (d DataDir) Log(steamID string) string {
	return filepath.Join(d.Root, LogFileFor(steamID))
}

// PID returns the full path to an account's lock file.
func (d DataDir) PID(steamID string) string {
	return filepath.Join(d.Root, PIDFileFor(steamID))
}

// CSV resolves a CSV file setting: empty means the per-account default,
// relative paths are taken relative to the data directory.
func (d DataDir) CSV(steamID, configured string) string {
	if configured == "" {
		return filepath.Join(d.Root, CSVFileFor(steamID))
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(d.Root, configured)
}
