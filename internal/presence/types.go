package presence

import "time"

// ///////////////////////////////////////////////
// Snapshot
// ///////////////////////////////////////////////

// Snapshot is one polled observation of the tracked account. It is produced
// fresh on every poll and is not retained beyond the tick that consumed it.
type Snapshot struct {
	// Status is the persona state at ObservedAt.
	Status Status
	// ActivityID identifies the current activity (the game's app id).
	// Empty means no activity.
	ActivityID string
	// ActivityName is the human-readable name of the activity, if known.
	ActivityName string
	// ObservedAt is when the source produced the snapshot.
	ObservedAt time.Time
	// LastLogoff is the API's own record of the last logoff, zero when the
	// profile does not expose it.
	LastLogoff time.Time
}

// HasActivity reports whether an activity is running in the snapshot.
func (s Snapshot) HasActivity() bool {
	return s.ActivityID != ""
}

// ///////////////////////////////////////////////
// Session State
// ///////////////////////////////////////////////

// State is the tracker's in-memory view of the account. A zero [time.Time]
// stands for "unset" in every timestamp field.
//
// Invariants maintained by [Tracker]:
//   - OnlineSessionStart is set if and only if Status is not [Offline].
//   - ActivityTotal and ActivityCount reset only when a fresh online session
//     starts; a merged short interruption keeps them.
//   - EstimatedLastActive is set only while Status is [Away] or [Snooze].
type State struct {
	// Status is the current known status.
	Status Status
	// StatusSince is when Status began.
	StatusSince time.Time
	// OnlineSessionStart is the start of the current online session.
	OnlineSessionStart time.Time
	// PriorOnlineSessionStart is the start of the last finished online
	// session, kept so a short interruption can resume it.
	PriorOnlineSessionStart time.Time

	// ActivityID is the activity seen on the previous tick, empty for none.
	ActivityID string
	// ActivityName is the display name that went with ActivityID.
	ActivityName string
	// ActivityStartedAt is when the current activity was first observed.
	ActivityStartedAt time.Time
	// ActivityFoldedAt is the point up to which the running activity is
	// already counted in ActivityTotal, zero when none of it is.
	ActivityFoldedAt time.Time
	// ActivityTotal is the time spent in activities this online session,
	// excluding the one currently running.
	ActivityTotal time.Duration
	// ActivityCount is the number of distinct activities started this
	// online session.
	ActivityCount int

	// EstimatedLastActive is the backdated moment of last real activity,
	// derived from the server-side away/snooze thresholds.
	EstimatedLastActive time.Time
}

// Record returns the durable part of s.
func (s State) Record() Record {
	r := Record{Status: s.Status, StatusSince: s.StatusSince}
	if s.Status.Idle() {
		r.EstimatedLastActive = s.EstimatedLastActive
	}
	return r
}

// ///////////////////////////////////////////////
// Persisted Record
// ///////////////////////////////////////////////

// Record is the durable presence record kept per tracked account. It is
// written on first contact and on every status change, and read once at
// startup.
type Record struct {
	// StatusSince is when Status began.
	StatusSince time.Time
	// Status is the last known status.
	Status Status
	// EstimatedLastActive is zero unless Status is [Away] or [Snooze].
	EstimatedLastActive time.Time
}

// ///////////////////////////////////////////////
// Thresholds
// ///////////////////////////////////////////////

// Thresholds configures the session-merging and inactivity heuristics.
type Thresholds struct {
	// OfflineInterrupt is the longest offline gap still treated as a
	// continuation of the previous online session.
	OfflineInterrupt time.Duration
	// AwayAfter is the server-side inactivity threshold after which the API
	// reports [Away].
	AwayAfter time.Duration
	// SnoozeAfter is the second threshold, measured from the start of
	// [Away], after which the API reports [Snooze].
	SnoozeAfter time.Duration
}

// DefaultThresholds returns the values the Steam client is known to use,
// plus a seven minute interruption window.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OfflineInterrupt: 420 * time.Second,
		AwayAfter:        5 * time.Minute,
		SnoozeAfter:      2 * time.Hour,
	}
}
