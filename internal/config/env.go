package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/subosito/gotenv"
)

// ///////////////////////////////////////////////
// Environment Overlay
// ///////////////////////////////////////////////

// Environment variable names read by [Config.ApplyEnv].
const (
	EnvAPIKey              = "STEAM_API_KEY"
	EnvSMTPPassword        = "SMTP_PASSWORD"
	EnvSMTPUser            = "SMTP_USER"
	EnvSteamID             = "STEAMWATCH_STEAM_ID"
	EnvCheckInterval       = "STEAMWATCH_CHECK_INTERVAL"
	EnvActiveCheckInterval = "STEAMWATCH_ACTIVE_CHECK_INTERVAL"
	EnvLogLevel            = "STEAMWATCH_LOG_LEVEL"
	EnvCSVFile             = "STEAMWATCH_CSV_FILE"
)

// Env resolves variables from the process environment first and a parsed
// .env file second.
type Env struct {
	dotenv gotenv.Env
	getenv func(string) string
}

// NewEnv builds an Env from explicit sources. getenv defaults to
// [os.Getenv].
func NewEnv(dotenv map[string]string, getenv func(string) string) Env {
	if getenv == nil {
		getenv = os.Getenv
	}
	return Env{dotenv: dotenv, getenv: getenv}
}

// LoadEnv parses the .env file at path. A missing file is not an error.
// The file is never exported into the process environment.
func LoadEnv(path string) (Env, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewEnv(nil, nil), nil
		}
		return NewEnv(nil, nil), fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	vals, err := gotenv.StrictParse(f)
	if err != nil {
		return NewEnv(nil, nil), fmt.Errorf("parse %s: %w", path, err)
	}
	return NewEnv(vals, nil), nil
}

// Lookup returns the value of key, or "" when neither source sets it.
func (e Env) Lookup(key string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return e.dotenv[key]
}

// ApplyEnv overlays environment values onto c. Only variables that are set
// override the file.
func (c *Config) ApplyEnv(e Env) error {
	if v := e.Lookup(EnvAPIKey); v != "" {
		c.Steam.APIKey = v
	}
	if v := e.Lookup(EnvSteamID); v != "" {
		c.Steam.SteamID = v
	}
	if v := e.Lookup(EnvSMTPUser); v != "" {
		c.SMTP.User = v
	}
	if v := e.Lookup(EnvSMTPPassword); v != "" {
		c.SMTP.Password = v
	}
	if v := e.Lookup(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := e.Lookup(EnvCSVFile); v != "" {
		c.CSV.Enabled = true
		c.CSV.File = v
	}
	if err := envInt(e, EnvCheckInterval, &c.Intervals.CheckSeconds); err != nil {
		return err
	}
	if err := envInt(e, EnvActiveCheckInterval, &c.Intervals.ActiveCheckSeconds); err != nil {
		return err
	}
	return nil
}

// envInt parses key into dst when it is set.
func envInt(e Env, key string, dst *int) error {
	v := e.Lookup(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, v)
	}
	*dst = n
	return nil
}
