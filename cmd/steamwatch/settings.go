package main

import (
	"fmt"
	"strings"

	rootpkg "tools.zach/dev/steamwatch"
	"tools.zach/dev/steamwatch/internal/config"
	"tools.zach/dev/steamwatch/internal/paths"
)

// ///////////////////////////////////////////////
// Settings Resolution
// ///////////////////////////////////////////////

// settings is the resolved configuration for one run.
type settings struct {
	dirs    paths.DataDir
	cfgPath string
	cfg     *config.Config
}

// dataDirFor returns the data directory selected by --data-dir, falling
// back to [paths.Default].
func dataDirFor(f *flags) paths.DataDir {
	if f.dataDir != "" {
		return paths.DataDir{Root: f.dataDir}
	}
	return paths.Default()
}

// configPathFor returns the config file selected by --config.
func configPathFor(f *flags, dirs paths.DataDir) string {
	if f.configPath != "" {
		return f.configPath
	}
	return dirs.Config()
}

// prepareDataDir creates the data directory and writes the default config
// on first run.
func prepareDataDir(f *flags) error {
	dirs := dataDirFor(f)
	if err := dirs.Ensure(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if _, err := config.WriteDefault(configPathFor(f, dirs), rootpkg.DefaultConfigTOML); err != nil {
		return err
	}
	return nil
}

// loadSettings layers defaults, the config file, .env, the environment and
// the command line, in that order. changed reports whether a flag was set
// explicitly. The result is not validated.
func loadSettings(f *flags, changed func(string) bool, args []string) (*settings, error) {
	dirs := dataDirFor(f)
	cfgPath := configPathFor(f, dirs)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	env, err := config.LoadEnv(dirs.Env())
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, err
	}
	applyFlags(cfg, f, changed, args)

	return &settings{dirs: dirs, cfgPath: cfgPath, cfg: cfg}, nil
}

// applyFlags overlays the command line onto cfg.
func applyFlags(cfg *config.Config, f *flags, changed func(string) bool, args []string) {
	if f.apiKey != "" {
		cfg.Steam.APIKey = f.apiKey
	}
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		cfg.Steam.SteamID = strings.TrimSpace(args[0])
	}
	if f.activeInactive {
		cfg.Notify.ActiveInactive = true
	}
	if f.activityChanges {
		cfg.Notify.ActivityChanges = true
	}
	if f.statusChanges {
		cfg.Notify.StatusChanges = true
	}
	if f.noErrorNotify {
		cfg.Notify.Errors = false
	}
	if changed("check-interval") {
		cfg.Intervals.CheckSeconds = f.checkInterval
	}
	if changed("active-check-interval") {
		cfg.Intervals.ActiveCheckSeconds = f.activeInterval
	}
	if f.csvFile != "" {
		cfg.CSV.Enabled = true
		cfg.CSV.File = f.csvFile
	}
	if f.disableLogging {
		cfg.Log.Disabled = true
	}
}
