// Package notify delivers the events produced by the presence tracker.
//
// The monitor builds one [Batch] per tick and hands it to a [Dispatcher],
// which fans it out to every configured [Sink]: the structured log, the
// console, an optional CSV file and optional e-mail. Sinks never influence
// the tracker; a failing sink is logged and the others still run.
package notify

import (
	"context"
	"log/slog"
	"time"

	"tools.zach/dev/steamwatch/internal/presence"
)

// ///////////////////////////////////////////////
// Batch
// ///////////////////////////////////////////////

// Account identifies the tracked account in output.
type Account struct {
	// SteamID is the SteamID64 of the account.
	SteamID string
	// Name is the persona name, falling back to SteamID when unknown.
	Name string
}

// Display returns the name used in messages.
func (a Account) Display() string {
	if a.Name != "" {
		return a.Name
	}
	return a.SteamID
}

// Settings holds the notification toggles in effect for one tick.
type Settings struct {
	// ActiveInactive mails offline <-> active transitions.
	ActiveInactive bool
	// ActivityChanges mails activity starts, stops and switches.
	ActivityChanges bool
	// StatusChanges mails every status transition.
	StatusChanges bool
	// Errors mails authorization failures.
	Errors bool
	// IgnoreActivities holds glob patterns of activity names that never
	// trigger activity mails.
	IgnoreActivities []string
}

// Failure describes a poll that did not produce a snapshot.
type Failure struct {
	// Err is the error returned by the presence source.
	Err error
	// Auth is set when the credential was rejected and this is the first
	// rejection since the last successful poll.
	Auth bool
	// RetryIn is the delay before the next attempt.
	RetryIn time.Duration
}

// Batch is everything the sinks get for one tick. Either Events or Failure
// is set, never both.
type Batch struct {
	Account Account
	// At is the tick time.
	At time.Time
	// Snapshot is the observation that produced Events.
	Snapshot presence.Snapshot
	// Events are the tracker's events in emission order.
	Events []presence.Event
	// Settings are the notification toggles for this tick.
	Settings Settings
	// Failure is set when the poll failed and should be reported.
	Failure *Failure
}

// Empty reports whether the batch carries nothing to deliver.
func (b Batch) Empty() bool {
	return len(b.Events) == 0 && b.Failure == nil
}

// ///////////////////////////////////////////////
// Sink
// ///////////////////////////////////////////////

// Sink consumes batches. Deliver must not retain b.Events after returning.
type Sink interface {
	// Name identifies the sink in log records.
	Name() string
	// Deliver handles one batch.
	Deliver(ctx context.Context, b Batch) error
}

// ///////////////////////////////////////////////
// Dispatcher
// ///////////////////////////////////////////////

// Dispatcher fans a batch out to its sinks in registration order.
type Dispatcher struct {
	sinks []Sink
	log   *slog.Logger
}

// NewDispatcher creates a Dispatcher. log defaults to [slog.Default].
func NewDispatcher(log *slog.Logger, sinks ...Sink) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{sinks: sinks, log: log}
}

// Add registers another sink.
func (d *Dispatcher) Add(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Sinks returns the names of the registered sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Deliver hands b to every sink. Sink errors are logged and swallowed.
func (d *Dispatcher) Deliver(ctx context.Context, b Batch) {
	if b.Empty() {
		return
	}
	for _, s := range d.sinks {
		if err := s.Deliver(ctx, b); err != nil {
			d.log.Warn("sink delivery failed", "sink", s.Name(), "error", err)
		}
	}
}
