// Package config provides configuration loading and defaults for the
// steamwatch daemon.
//
// Configuration is layered: built-in defaults, then the TOML file in the
// data directory, then secrets from .env and the process environment, then
// command-line flags. The fields that may change while the daemon runs are
// copied into a [Runtime] snapshot held by [Live].
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/steamwatch/internal/atomicfile"
	"tools.zach/dev/steamwatch/internal/migrate"
	"tools.zach/dev/steamwatch/internal/presence"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Steam holds the Web API credential and the tracked account.
	Steam SteamConfig `toml:"steam"`
	// Intervals holds polling cadence settings.
	Intervals IntervalsConfig `toml:"intervals"`
	// Session holds the session-merging and inactivity heuristics.
	Session SessionConfig `toml:"session"`
	// Notify holds e-mail notification toggles.
	Notify NotifyConfig `toml:"notify"`
	// SMTP holds outgoing mail server settings.
	SMTP SMTPConfig `toml:"smtp"`
	// CSV holds the status-change CSV log settings.
	CSV CSVConfig `toml:"csv"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// SteamConfig holds Steam Web API settings.
type SteamConfig struct {
	// APIKey is the Steam Web API key. Prefer STEAM_API_KEY in .env.
	APIKey string `toml:"api_key,omitempty"`
	// SteamID is the SteamID64 of the tracked account.
	SteamID string `toml:"steam_id,omitempty"`
	// BaseURL overrides the Web API endpoint.
	BaseURL string `toml:"base_url,omitempty"`
}

// IntervalsConfig holds polling cadence settings, in seconds.
type IntervalsConfig struct {
	// CheckSeconds is the polling interval while the account is offline.
	CheckSeconds int `toml:"check_seconds"`
	// ActiveCheckSeconds is the polling interval while the account is online.
	ActiveCheckSeconds int `toml:"active_check_seconds"`
	// ActiveStepSeconds is how much SIGTRAP/SIGABRT move the active interval.
	ActiveStepSeconds int `toml:"active_step_seconds"`
	// AliveSeconds is how often an "alive" line is logged while offline.
	AliveSeconds int `toml:"alive_seconds"`
}

// SessionConfig holds the tracker heuristics, in seconds.
type SessionConfig struct {
	// OfflineInterruptSeconds is the longest offline gap merged into the
	// previous online session.
	OfflineInterruptSeconds int `toml:"offline_interrupt_seconds"`
	// AwayAfterSeconds is the Steam client's inactivity threshold for Away.
	AwayAfterSeconds int `toml:"away_after_seconds"`
	// SnoozeAfterSeconds is the additional threshold from Away to Snooze.
	SnoozeAfterSeconds int `toml:"snooze_after_seconds"`
}

// NotifyConfig holds e-mail notification toggles.
type NotifyConfig struct {
	// ActiveInactive mails when the account goes online or offline.
	ActiveInactive bool `toml:"active_inactive"`
	// ActivityChanges mails when a game starts, stops or changes.
	ActivityChanges bool `toml:"activity_changes"`
	// StatusChanges mails on every status change, including away/snooze.
	StatusChanges bool `toml:"status_changes"`
	// Errors mails when the API key is rejected.
	Errors bool `toml:"errors"`
	// IgnoreActivities lists glob patterns of game names that never trigger
	// activity mails.
	IgnoreActivities []string `toml:"ignore_activities"`
}

// SMTPConfig holds outgoing mail server settings.
type SMTPConfig struct {
	// Host is the SMTP server host name. Empty disables mail.
	Host string `toml:"host"`
	// Port is the SMTP server port.
	Port int `toml:"port"`
	// User is the SMTP login.
	User string `toml:"user"`
	// Password is the SMTP password. Prefer SMTP_PASSWORD in .env.
	Password string `toml:"password,omitempty"`
	// Security is "starttls", "tls" (implicit) or "none".
	Security string `toml:"security"`
	// From is the sender address.
	From string `toml:"from"`
	// To is the recipient address.
	To string `toml:"to"`
}

// CSVConfig holds status-change CSV log settings.
type CSVConfig struct {
	// Enabled turns on the CSV log.
	Enabled bool `toml:"enabled"`
	// File is the CSV path; empty means steamwatch_<steamid>.csv in the
	// data directory.
	File string `toml:"file,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
	// Disabled turns off the log file entirely.
	Disabled bool `toml:"disabled"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Intervals: IntervalsConfig{
			CheckSeconds:       90,
			ActiveCheckSeconds: 30,
			ActiveStepSeconds:  30,
			AliveSeconds:       21600,
		},
		Session: SessionConfig{
			OfflineInterruptSeconds: 420,
			AwayAfterSeconds:        300,
			SnoozeAfterSeconds:      7200,
		},
		Notify: NotifyConfig{
			Errors:           true,
			IgnoreActivities: []string{},
		},
		SMTP: SMTPConfig{
			Port:     587,
			Security: "starttls",
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ExampleConfig returns a Config suitable for generating config.default.toml.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file at path. A missing file
// yields [DefaultConfig]. The result is not validated: callers apply the
// environment and flag overlays first, then call [Config.Validate].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)

	shouldMigrate := migrate.Config.Stale(version)
	if shouldMigrate {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		var migrateErr error
		data, _, migrateErr = migrate.Config.Run(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate config: %w", migrateErr)
		}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if shouldMigrate {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}
	return cfg, nil
}

// WriteDefault writes data (the embedded config.default.toml) to path if no
// file exists there yet. It reports whether a file was written.
func WriteDefault(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o600)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// ErrMissingAPIKey is returned by [Config.Validate] when no API key was
// found in the file, the environment or the flags.
var ErrMissingAPIKey = errors.New("steam api key is not set (use STEAM_API_KEY, --steam-api-key or [steam].api_key)")

// Validate checks that all configuration values are within acceptable
// ranges. It does not check the SteamID format; the steam package owns that.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Steam.APIKey) == "" {
		return ErrMissingAPIKey
	}

	if c.Intervals.CheckSeconds <= 0 {
		return fmt.Errorf("intervals.check_seconds must be > 0, got %d", c.Intervals.CheckSeconds)
	}
	if c.Intervals.ActiveCheckSeconds <= 0 {
		return fmt.Errorf("intervals.active_check_seconds must be > 0, got %d", c.Intervals.ActiveCheckSeconds)
	}
	if c.Intervals.ActiveStepSeconds <= 0 {
		return fmt.Errorf("intervals.active_step_seconds must be > 0, got %d", c.Intervals.ActiveStepSeconds)
	}
	if c.Intervals.AliveSeconds < 0 {
		return fmt.Errorf("intervals.alive_seconds must be >= 0, got %d", c.Intervals.AliveSeconds)
	}

	if c.Session.OfflineInterruptSeconds < 0 {
		return fmt.Errorf("session.offline_interrupt_seconds must be >= 0, got %d", c.Session.OfflineInterruptSeconds)
	}
	if c.Session.AwayAfterSeconds <= 0 {
		return fmt.Errorf("session.away_after_seconds must be > 0, got %d", c.Session.AwayAfterSeconds)
	}
	if c.Session.SnoozeAfterSeconds <= 0 {
		return fmt.Errorf("session.snooze_after_seconds must be > 0, got %d", c.Session.SnoozeAfterSeconds)
	}

	for _, p := range c.Notify.IgnoreActivities {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid notify.ignore_activities pattern %q", p)
		}
	}

	if c.MailEnabled() {
		switch c.SMTP.Security {
		case "starttls", "tls", "none":
		default:
			return fmt.Errorf("invalid smtp.security %q: must be starttls, tls, or none", c.SMTP.Security)
		}
		if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
			return fmt.Errorf("smtp.port must be 1-65535, got %d", c.SMTP.Port)
		}
		if _, err := mail.ParseAddress(c.SMTP.From); err != nil {
			return fmt.Errorf("invalid smtp.from %q: %w", c.SMTP.From, err)
		}
		if _, err := mail.ParseAddress(c.SMTP.To); err != nil {
			return fmt.Errorf("invalid smtp.to %q: %w", c.SMTP.To, err)
		}
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}
	return nil
}

// MailEnabled reports whether an SMTP server is configured.
func (c *Config) MailEnabled() bool {
	return strings.TrimSpace(c.SMTP.Host) != ""
}

// ///////////////////////////////////////////////
// Derived Values
// ///////////////////////////////////////////////

// Thresholds returns the tracker heuristics.
func (c *Config) Thresholds() presence.Thresholds {
	return presence.Thresholds{
		OfflineInterrupt: seconds(c.Session.OfflineInterruptSeconds),
		AwayAfter:        seconds(c.Session.AwayAfterSeconds),
		SnoozeAfter:      seconds(c.Session.SnoozeAfterSeconds),
	}
}

// Runtime returns the live-adjustable part of the configuration.
func (c *Config) Runtime() Runtime {
	return Runtime{
		CheckInterval:  seconds(c.Intervals.CheckSeconds),
		ActiveInterval: seconds(c.Intervals.ActiveCheckSeconds),
		ActiveStep:     seconds(c.Intervals.ActiveStepSeconds),
		AliveInterval:  seconds(c.Intervals.AliveSeconds),
		Notify: NotifySettings{
			ActiveInactive:   c.Notify.ActiveInactive,
			ActivityChanges:  c.Notify.ActivityChanges,
			StatusChanges:    c.Notify.StatusChanges,
			Errors:           c.Notify.Errors,
			IgnoreActivities: append([]string(nil), c.Notify.IgnoreActivities...),
		},
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
