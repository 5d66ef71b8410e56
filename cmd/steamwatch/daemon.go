package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tools.zach/dev/steamwatch/internal/config"
	"tools.zach/dev/steamwatch/internal/logger"
	"tools.zach/dev/steamwatch/internal/monitor"
	"tools.zach/dev/steamwatch/internal/notify"
	"tools.zach/dev/steamwatch/internal/paths"
	"tools.zach/dev/steamwatch/internal/presence"
	"tools.zach/dev/steamwatch/internal/steam"
	"tools.zach/dev/steamwatch/internal/store"
	"tools.zach/dev/steamwatch/internal/update"
)

// recentGamesCount is the length of the recently played list in the banner.
const recentGamesCount = 5

// ///////////////////////////////////////////////
// Daemon
// ///////////////////////////////////////////////

// daemon holds what the background goroutines share with the poll loop.
type daemon struct {
	ctx     context.Context
	flags   *flags
	changed func(string) bool
	args    []string
	cfgPath string
	envPath string
	steamID string

	client  *steam.Client
	live    *config.Live
	console *notify.ConsoleSink
	log     *slog.Logger
	mon     *monitor.Monitor
}

// runDaemon resolves the configuration, takes the per-account lock and runs
// the poll loop until interrupted.
func runDaemon(cmd *cobra.Command, f *flags, args []string) error {
	if err := prepareDataDir(f); err != nil {
		return err
	}
	changed := cmd.Flags().Changed
	s, err := loadSettings(f, changed, args)
	if err != nil {
		return err
	}
	cfg := s.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	client := steam.New(cfg.Steam.APIKey, steam.Options{BaseURL: cfg.Steam.BaseURL})

	steamID, err := resolveSteamID(ctx, client, cfg.Steam.SteamID, f.resolveURL, out)
	if err != nil {
		return err
	}

	lock, err := acquirePID(s.dirs.PID(steamID))
	if err != nil {
		return err
	}
	defer lock.release()

	logPath := s.dirs.Log(steamID)
	log, logCloser, err := logger.New(logger.Options{
		Path:      logPath,
		Level:     logger.ParseLevel(cfg.Log.Level),
		MaxSizeMB: cfg.Log.MaxSizeMB,
		Disabled:  cfg.Log.Disabled,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(log)
	log.Info("steamwatch starting", "version", resolveVersion(), "steam_id", steamID, "data_dir", s.dirs.Root)

	console := notify.NewConsoleSink(out)
	dispatcher, csvPath, err := buildDispatcher(cfg, s.dirs, steamID, console, log)
	if err != nil {
		return err
	}

	live := config.NewLive(cfg.Runtime())
	startup := notify.StartupInfo{
		SteamID:        steamID,
		CheckInterval:  live.Load().CheckInterval,
		ActiveInterval: live.Load().ActiveInterval,
		Settings:       notifySettings(live.Load().Notify),
		CSVFile:        csvPath,
	}
	if !cfg.Log.Disabled {
		startup.LogFile = logPath
	}
	if cfg.MailEnabled() {
		startup.MailTo = cfg.SMTP.To
	}
	console.Startup(startup)

	st := store.New(s.dirs, steamID, log)
	d := &daemon{
		ctx:     ctx,
		flags:   f,
		changed: changed,
		args:    args,
		cfgPath: s.cfgPath,
		envPath: s.dirs.Env(),
		steamID: steamID,
		client:  client,
		live:    live,
		console: console,
		log:     log,
	}

	mon, err := monitor.New(monitor.Options{
		Account: notify.Account{SteamID: steamID},
		Source:  client,
		Loader:  st,
		Tracker: presence.NewTracker(cfg.Thresholds(), st, log),
		Live:    live,
		Sink:    dispatcher,
		Log:     log,
		OnStart: d.onStart,
		OnAlive: console.Alive,
	})
	if err != nil {
		return err
	}
	d.mon = mon

	go d.watchConfig()
	go d.handleSignals(cancel)
	go checkForUpdate(ctx, log)

	err = mon.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("steamwatch stopped")
		return nil
	}
	logger.Fail(log, "steamwatch stopped on error", "error", err)
	return err
}

// resolveSteamID picks the account to track: a resolved community URL wins
// over the configured id.
func resolveSteamID(ctx context.Context, client *steam.Client, configured, resolveURL string, out io.Writer) (string, error) {
	id := configured
	if resolveURL != "" {
		fmt.Fprintf(out, "* Resolving Steam community URL to Steam ID: %s\n", resolveURL)
		resolved, err := client.ResolveCommunityURL(ctx, resolveURL)
		if err != nil {
			return "", fmt.Errorf("resolve community url: %w", err)
		}
		id = resolved
	}
	if id == "" {
		return "", errors.New("steam id is required (argument, --resolve-url, STEAMWATCH_STEAM_ID or [steam].steam_id)")
	}
	if !steam.ValidSteamID(id) {
		return "", fmt.Errorf("%w: %q", steam.ErrInvalidID, id)
	}
	return id, nil
}

// buildDispatcher registers the sinks cfg enables. It returns the CSV path,
// empty when CSV output is off.
func buildDispatcher(cfg *config.Config, dirs paths.DataDir, steamID string, console *notify.ConsoleSink, log *slog.Logger) (*notify.Dispatcher, string, error) {
	d := notify.NewDispatcher(log, notify.NewLogSink(log), console)

	var csvPath string
	if cfg.CSV.Enabled {
		sink, err := notify.NewCSVSink(dirs.CSV(steamID, cfg.CSV.File))
		if err != nil {
			return nil, "", fmt.Errorf("csv file cannot be opened for writing: %w", err)
		}
		d.Add(sink)
		csvPath = sink.Path()
	}

	if cfg.MailEnabled() {
		mailer := &notify.SMTPMailer{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			Security: cfg.SMTP.Security,
		}
		d.Add(notify.NewMailSink(mailer, cfg.SMTP.From, cfg.SMTP.To, log))
	}
	log.Debug("notification sinks registered", "sinks", strings.Join(d.Sinks(), ","))
	return d, csvPath, nil
}

// notifySettings maps the runtime toggles for console output.
func notifySettings(n config.NotifySettings) notify.Settings {
	return notify.Settings{
		ActiveInactive:   n.ActiveInactive,
		ActivityChanges:  n.ActivityChanges,
		StatusChanges:    n.StatusChanges,
		Errors:           n.Errors,
		IgnoreActivities: n.IgnoreActivities,
	}
}

// checkForUpdate logs when a newer release is published. Failures only
// reach the debug log.
func checkForUpdate(ctx context.Context, log *slog.Logger) {
	res, err := update.Default().Check(ctx, resolveVersion())
	if err != nil {
		log.Debug("version check skipped", "error", err)
		return
	}
	if res.Newer {
		log.Info("new version available", "current", res.Current, "latest", res.Latest)
	}
}

// ///////////////////////////////////////////////
// Startup Banner
// ///////////////////////////////////////////////

// onStart runs on the poll loop after the first snapshot. It fetches the
// profile details the snapshot lacks and prints the banner.
func (d *daemon) onStart(state presence.State, snap presence.Snapshot) {
	ctx, cancel := context.WithTimeout(d.ctx, 30*time.Second)
	defer cancel()

	info := notify.BannerInfo{
		Name:        d.steamID,
		Status:      state.Status,
		StatusSince: state.StatusSince,
		Game:        snap.ActivityName,
		Now:         time.Now(),
	}
	if state.Status == presence.Offline {
		info.LastAvailable = state.StatusSince
	}

	p, err := d.client.Profile(ctx, d.steamID)
	if err != nil {
		d.log.Warn("failed to fetch profile for banner", "error", err)
	} else {
		d.mon.SetAccountName(p.PersonaName)
		info.Name = p.PersonaName
		info.RealName = p.RealName
		info.Visibility = p.Visibility.String()
		info.Created = p.Created
	}

	games, err := d.client.RecentGames(ctx, d.steamID, recentGamesCount)
	if err != nil {
		d.log.Debug("failed to fetch recently played games", "error", err)
	}
	for _, g := range games {
		info.RecentGames = append(info.RecentGames, g.Name)
	}

	d.console.Banner(info)
}

// ///////////////////////////////////////////////
// Live Reconfiguration
// ///////////////////////////////////////////////

// reload re-resolves the whole configuration and swaps in its runtime
// settings and API key. Signal toggles made since startup are replaced by
// what the file says.
func (d *daemon) reload() error {
	s, err := loadSettings(d.flags, d.changed, d.args)
	if err != nil {
		return err
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	rt := s.cfg.Runtime()
	d.client.SetAPIKey(s.cfg.Steam.APIKey)
	d.live.Update(func(config.Runtime) config.Runtime { return rt })
	return nil
}

// reloadSecrets re-reads .env and the environment and swaps the API key.
func (d *daemon) reloadSecrets() error {
	s, err := loadSettings(d.flags, d.changed, d.args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(s.cfg.Steam.APIKey) == "" {
		return config.ErrMissingAPIKey
	}
	d.client.SetAPIKey(s.cfg.Steam.APIKey)
	return nil
}

// watchTargets groups the files a reload depends on by directory. The
// config file may live outside the data directory that holds .env.
func watchTargets(cfgPath, envPath string) map[string][]string {
	targets := make(map[string][]string, 2)
	for _, p := range []string{cfgPath, envPath} {
		dir := filepath.Dir(p)
		targets[dir] = append(targets[dir], filepath.Base(p))
	}
	return targets
}

// watchConfig reloads the configuration whenever the config file or .env
// changes.
func (d *daemon) watchConfig() {
	changes := make(chan struct{}, 1)
	for dir, names := range watchTargets(d.cfgPath, d.envPath) {
		w, err := config.NewWatcher(dir, names...)
		if err != nil {
			d.log.Warn("config watching disabled", "dir", dir, "error", err)
			continue
		}
		defer w.Close()
		if w.Polling() {
			d.log.Info("using polling mode for config watching", "dir", dir)
		}
		go func() {
			for {
				select {
				case <-d.ctx.Done():
					return
				case <-w.Events():
					select {
					case changes <- struct{}{}:
					default:
					}
				}
			}
		}()
	}

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-changes:
			if err := d.reload(); err != nil {
				d.log.Warn("config reload rejected, keeping previous settings", "error", err)
				continue
			}
			rt := d.live.Load()
			d.log.Info("config reloaded",
				"check_interval", rt.CheckInterval,
				"active_interval", rt.ActiveInterval,
			)
		}
	}
}

// handleSignals applies reconfiguration signals until shutdown.
func (d *daemon) handleSignals(cancel context.CancelFunc) {
	stop := signalChannel()
	ctl := controlChannel()
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-stop:
			d.log.Info("received shutdown signal")
			cancel()
			return
		case sig := <-ctl:
			name := signalName(sig)
			lines := applyControl(controlSignals[sig], d.live, d.reloadSecrets)
			d.log.Info("signal received", "signal", name, "result", strings.Join(lines, "; "))
			d.console.Ack(name, lines...)
		}
	}
}
