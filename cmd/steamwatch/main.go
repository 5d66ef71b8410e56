// Package main implements the steamwatch daemon, which polls a Steam
// account's presence and reports session-level changes to the console, a
// log file, an optional CSV file and optional e-mail.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"tools.zach/dev/steamwatch/internal/update"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//
//	-X main.version=0.1.0
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags at build time it is returned as-is; otherwise the embedded VCS
// revision is used to construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Commands
// ///////////////////////////////////////////////

// flags holds the command-line overrides. Boolean notification flags only
// turn toggles on; they never turn off what the config file enables.
type flags struct {
	apiKey          string
	resolveURL      string
	activeInactive  bool
	activityChanges bool
	statusChanges   bool
	noErrorNotify   bool
	checkInterval   int
	activeInterval  int
	csvFile         string
	disableLogging  bool
	dataDir         string
	configPath      string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "steamwatch [STEAM_ID]",
		Short: "Track a Steam account's online sessions and games",
		Long: `steamwatch polls the Steam Web API for one account and reports when it
goes online or offline, changes status, or starts and stops playing a game.

Short offline interruptions are merged into the previous session, and the
moment of last real activity is estimated from the away/snooze thresholds.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, f, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.dataDir, "data-dir", "", "Data directory for config, state and logs (default ~/.steamwatch)")
	pf.StringVar(&f.configPath, "config", "", "Config file (default <data-dir>/config.toml)")
	pf.StringVarP(&f.apiKey, "steam-api-key", "u", "", "Steam Web API key (overrides STEAM_API_KEY)")

	fl := root.Flags()
	fl.StringVarP(&f.resolveURL, "resolve-url", "r", "", "Resolve a community profile URL to a Steam ID and monitor it")
	fl.BoolVarP(&f.activeInactive, "active-inactive", "a", false, "Mail when the user goes online or offline")
	fl.BoolVarP(&f.activityChanges, "activity-changes", "g", false, "Mail when the user starts, stops or changes games")
	fl.BoolVarP(&f.statusChanges, "status-changes", "s", false, "Mail on every status change (online, away, snooze, ...)")
	fl.BoolVarP(&f.noErrorNotify, "no-error-notify", "e", false, "Do not mail when the API key is rejected")
	fl.IntVarP(&f.checkInterval, "check-interval", "c", 0, "Seconds between polls while offline")
	fl.IntVarP(&f.activeInterval, "active-check-interval", "k", 0, "Seconds between polls while online")
	fl.StringVarP(&f.csvFile, "csv", "b", "", "Write status and game changes to this CSV file")
	fl.BoolVarP(&f.disableLogging, "disable-logging", "d", false, "Do not write the log file")

	root.AddCommand(newStatusCmd(f), newResolveCmd(f), newVersionCmd())
	return root
}

// newVersionCmd prints the build version, optionally comparing it with the
// latest release.
func newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			current := resolveVersion()
			fmt.Fprintf(out, "steamwatch %s\n", current)
			if !check {
				return nil
			}
			res, err := update.Default().Check(cmd.Context(), current)
			if err != nil {
				return fmt.Errorf("check for updates: %w", err)
			}
			if res.Newer {
				fmt.Fprintf(out, "A newer version is available: %s\n", res.Latest)
			} else {
				fmt.Fprintln(out, "Up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Compare with the latest published release")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
