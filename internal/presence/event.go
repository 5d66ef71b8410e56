package presence

import "time"

// ///////////////////////////////////////////////
// Events
// ///////////////////////////////////////////////

// Event is a one-shot notification produced by [Tracker]. The concrete types
// are [StatusChanged] and [ActivityChanged]; sinks switch on them.
type Event interface {
	// At returns the tick time the event was produced at.
	At() time.Time
	isEvent()
}

// SessionSummary aggregates a finished online session.
type SessionSummary struct {
	// Start is the session start, possibly carried across short interruptions.
	Start time.Time
	// Duration is the total online time of the session.
	Duration time.Duration
	// ActivityTotal is the accumulated activity time, including the activity
	// implicitly stopped by going offline.
	ActivityTotal time.Duration
	// ActivityCount is the number of distinct activities started.
	ActivityCount int
}

// Inactivity is the estimate attached to transitions into [Away] or
// [Snooze]. It is inferred from server thresholds, not measured.
type Inactivity struct {
	// LastActiveAt is the estimated moment of last real activity.
	LastActiveAt time.Time
	// ActivePortion is the time actively used before going idle
	// (only for transitions into Away).
	ActivePortion time.Duration
	// IdlePortion is the part of the previous status spent idle
	// (only for transitions into Away).
	IdlePortion time.Duration
	// Total is the total inactivity up to the transition.
	Total time.Duration
}

// StatusChanged reports a status transition.
type StatusChanged struct {
	From Status
	To   Status
	// Since is when From began.
	Since time.Time
	// Now is the tick time of the transition.
	Now time.Time
	// Elapsed is how long From lasted (Now - Since, never negative).
	Elapsed time.Duration

	// MergedShortInterruption is set when going online resumed the previous
	// session instead of starting a new one.
	MergedShortInterruption bool
	// SessionStart is the online session start after an offline -> active
	// transition.
	SessionStart time.Time
	// Session summarizes the online session that ended with an
	// active -> offline transition.
	Session *SessionSummary
	// Inactivity is set for transitions into Away or Snooze when an estimate
	// could be made.
	Inactivity *Inactivity

	// ActivityName is the activity running in the snapshot that carried the
	// transition, empty for none.
	ActivityName string
}

// At implements [Event].
func (e StatusChanged) At() time.Time { return e.Now }

func (StatusChanged) isEvent() {}

// WentActive reports whether the transition started or resumed an online
// session.
func (e StatusChanged) WentActive() bool {
	return e.From == Offline && e.To.Active()
}

// WentOffline reports whether the transition ended an online session.
func (e StatusChanged) WentOffline() bool {
	return e.From.Active() && e.To == Offline
}

// ActivityKind classifies an [ActivityChanged] event.
type ActivityKind int

const (
	ActivityStarted ActivityKind = iota + 1
	ActivityStopped
	ActivitySwitched
)

// String returns the lowercase kind name.
func (k ActivityKind) String() string {
	switch k {
	case ActivityStarted:
		return "started"
	case ActivityStopped:
		return "stopped"
	case ActivitySwitched:
		return "switched"
	default:
		return "unknown"
	}
}

// ActivityChanged reports an activity start, stop or switch.
type ActivityChanged struct {
	Kind    ActivityKind
	OldID   string
	OldName string
	NewID   string
	NewName string
	// StartedAt is when the old activity began; zero for [ActivityStarted].
	StartedAt time.Time
	// Now is the tick time of the change.
	Now time.Time
	// Played is how long the old activity ran; zero for [ActivityStarted].
	Played time.Duration
}

// At implements [Event].
func (e ActivityChanged) At() time.Time { return e.Now }

func (ActivityChanged) isEvent() {}
