// Package monitor drives the poll loop: it polls the presence source, feeds
// snapshots through the [presence.Tracker], and hands the resulting events to
// the notification sinks.
//
// One [Monitor] tracks one account. Each tick reads a single
// [config.Runtime] snapshot so signal handlers and config reloads that land
// mid-tick take effect on the next one.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tools.zach/dev/steamwatch/internal/config"
	"tools.zach/dev/steamwatch/internal/logger"
	"tools.zach/dev/steamwatch/internal/notify"
	"tools.zach/dev/steamwatch/internal/presence"
	"tools.zach/dev/steamwatch/internal/steam"
	"tools.zach/dev/steamwatch/internal/store"
)

// ///////////////////////////////////////////////
// Collaborators
// ///////////////////////////////////////////////

// Source produces presence snapshots.
type Source interface {
	Poll(ctx context.Context, steamID string) (presence.Snapshot, error)
}

// Loader reads the persisted presence record.
type Loader interface {
	Load() (*presence.Record, error)
}

// Deliverer receives one batch per tick that produced output.
type Deliverer interface {
	Deliver(ctx context.Context, b notify.Batch)
}

// Options wires a [Monitor].
type Options struct {
	// Account identifies the tracked account.
	Account notify.Account
	// Source is polled once per tick.
	Source Source
	// Loader supplies the persisted record at startup. May be nil.
	Loader Loader
	// Tracker derives events from snapshots.
	Tracker *presence.Tracker
	// Live holds the runtime settings.
	Live *config.Live
	// Sink receives the batches.
	Sink Deliverer
	// Log defaults to [slog.Default].
	Log *slog.Logger

	// Now defaults to [time.Now].
	Now func() time.Time
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnStart is called once after the first successful poll with the
	// initial state and the profile snapshot that produced it.
	OnStart func(presence.State, presence.Snapshot)
	// OnAlive is called for every alive check while offline.
	OnAlive func(time.Time)
}

// ///////////////////////////////////////////////
// Monitor
// ///////////////////////////////////////////////

// loopState holds what the loop carries between ticks besides the tracker
// state.
type loopState struct {
	// started is set once the first snapshot initialized the tracker.
	started bool
	// authStreak is set while consecutive polls are rejected as
	// unauthorized, so the rejection is reported once.
	authStreak bool
	// failures counts consecutive failed polls.
	failures int
	// lastNoted is the last time a change or an alive line was reported.
	lastNoted time.Time
}

// Monitor runs the poll loop for one account.
type Monitor struct {
	opts  Options
	log   *slog.Logger
	state presence.State
	ls    loopState
}

// New validates opts and creates a Monitor.
func New(opts Options) (*Monitor, error) {
	switch {
	case opts.Source == nil:
		return nil, errors.New("monitor: source is required")
	case opts.Tracker == nil:
		return nil, errors.New("monitor: tracker is required")
	case opts.Live == nil:
		return nil, errors.New("monitor: live settings are required")
	case opts.Sink == nil:
		return nil, errors.New("monitor: sink is required")
	case opts.Account.SteamID == "":
		return nil, errors.New("monitor: steam id is required")
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Monitor{opts: opts, log: opts.Log}, nil
}

// State returns the current tracker state. Only meaningful after the first
// successful poll.
func (m *Monitor) State() presence.State {
	return m.state
}

// SetAccountName replaces the display name used in batches. It is not safe
// to call concurrently with [Monitor.Run]; call it from OnStart.
func (m *Monitor) SetAccountName(name string) {
	m.opts.Account.Name = name
}

// Run polls until ctx is done and returns ctx's error. It never exits on
// poll failures.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		d := m.Tick(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Trace(m.log, "sleeping", "for", d)
		if err := m.opts.Sleep(ctx, d); err != nil {
			return err
		}
	}
}

// Tick performs one poll and returns how long to wait before the next.
func (m *Monitor) Tick(ctx context.Context) time.Duration {
	rt := m.opts.Live.Load()
	now := m.opts.Now()

	snap, err := m.opts.Source.Poll(ctx, m.opts.Account.SteamID)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		return m.failed(ctx, rt, now, err)
	}
	if m.ls.failures > 0 {
		m.log.Info("poll recovered", "after_failures", m.ls.failures)
	}
	m.ls.failures = 0
	m.ls.authStreak = false

	var events []presence.Event
	if !m.ls.started {
		events = m.initialize(snap, now)
	} else {
		m.state, events = m.opts.Tracker.Process(m.state, snap, now)
	}

	if len(events) > 0 {
		m.ls.lastNoted = now
		m.opts.Sink.Deliver(ctx, notify.Batch{
			Account:  m.opts.Account,
			At:       now,
			Snapshot: snap,
			Events:   events,
			Settings: settingsFrom(rt.Notify),
		})
	} else {
		m.aliveCheck(rt, now)
	}
	return NextInterval(rt, m.state.Status)
}

// initialize loads the persisted record and seeds the tracker from the
// first snapshot.
func (m *Monitor) initialize(snap presence.Snapshot, now time.Time) []presence.Event {
	var rec *presence.Record
	if m.opts.Loader != nil {
		r, err := m.opts.Loader.Load()
		switch {
		case err == nil:
			rec = r
			m.log.Info("loaded last status", "status", r.Status.String(), "since", r.StatusSince)
		case errors.Is(err, store.ErrNotFound):
			m.log.Info("no saved status, starting fresh")
		default:
			m.log.Warn("ignoring saved status", "error", err)
		}
	}

	var events []presence.Event
	m.state, events = m.opts.Tracker.Initialize(rec, snap, now)
	m.ls.started = true
	m.ls.lastNoted = now
	m.log.Info("monitoring started",
		"steam_id", m.opts.Account.SteamID,
		"status", m.state.Status.String(),
		"since", m.state.StatusSince,
	)
	if m.opts.OnStart != nil {
		m.opts.OnStart(m.state, snap)
	}
	return events
}

// failed handles a poll error and returns the retry delay. The tracker
// state is left untouched.
func (m *Monitor) failed(ctx context.Context, rt config.Runtime, now time.Time, err error) time.Duration {
	m.ls.failures++
	delay := NextInterval(rt, m.state.Status)

	var rl *steam.RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		delay = rl.RetryAfter
	}

	auth := errors.Is(err, steam.ErrAuthInvalid)
	report := auth && !m.ls.authStreak
	if auth {
		m.ls.authStreak = true
	}

	m.log.Warn("poll failed", "attempt", m.ls.failures, "retry_in", delay, "error", err)
	m.opts.Sink.Deliver(ctx, notify.Batch{
		Account:  m.opts.Account,
		At:       now,
		Settings: settingsFrom(rt.Notify),
		Failure:  &notify.Failure{Err: err, Auth: report, RetryIn: delay},
	})
	return delay
}

// aliveCheck reports that the loop is still running after a quiet
// AliveInterval while offline.
func (m *Monitor) aliveCheck(rt config.Runtime, now time.Time) {
	if rt.AliveInterval <= 0 || m.state.Status != presence.Offline {
		return
	}
	if now.Sub(m.ls.lastNoted) < rt.AliveInterval {
		return
	}
	m.ls.lastNoted = now
	m.log.Info("alive check", "status", m.state.Status.String(), "since", m.state.StatusSince)
	if m.opts.OnAlive != nil {
		m.opts.OnAlive(now)
	}
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// NextInterval returns the poll interval for status: ActiveInterval during
// an online session, CheckInterval otherwise.
func NextInterval(rt config.Runtime, status presence.Status) time.Duration {
	if status.Active() {
		return rt.ActiveInterval
	}
	return rt.CheckInterval
}

// settingsFrom maps the runtime toggles onto the sink settings.
func settingsFrom(n config.NotifySettings) notify.Settings {
	return notify.Settings{
		ActiveInactive:   n.ActiveInactive,
		ActivityChanges:  n.ActivityChanges,
		StatusChanges:    n.StatusChanges,
		Errors:           n.Errors,
		IgnoreActivities: n.IgnoreActivities,
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
