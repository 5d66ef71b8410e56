// Package presence turns a sequence of polled presence snapshots into
// session-level events.
//
// The package owns three things:
//
//   - The data model: [Status], [Snapshot], [State] and the persisted [Record].
//   - The [Tracker], a small state machine that merges short offline
//     interruptions into the previous online session, accumulates activity
//     time, and estimates when the account was last genuinely active.
//   - The [Event] variants ([StatusChanged], [ActivityChanged]) handed to
//     sinks after every tick.
//
// Nothing in this package performs I/O other than through the [Saver] the
// tracker is constructed with.
package presence

import (
	"fmt"
	"strings"
)

// ///////////////////////////////////////////////
// Status
// ///////////////////////////////////////////////

// Status is the persona state reported by the profile API. The numeric values
// match the API's own encoding and are persisted as-is.
type Status int

const (
	Offline Status = iota
	Online
	Busy
	Away
	Snooze
	LookingToTrade
	LookingToPlay
)

// statusNames holds the display names indexed by [Status].
var statusNames = [...]string{
	Offline:        "offline",
	Online:         "online",
	Busy:           "busy",
	Away:           "away",
	Snooze:         "snooze",
	LookingToTrade: "looking to trade",
	LookingToPlay:  "looking to play",
}

// String returns the lowercase display name, or "status(N)" for values the
// API is not known to send.
func (s Status) String() string {
	if s.Valid() {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Upper returns the display name in capitals, used in console headlines.
func (s Status) Upper() string {
	return strings.ToUpper(s.String())
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	return s >= Offline && s <= LookingToPlay
}

// Active reports whether s belongs to an online session. Every state other
// than [Offline] counts.
func (s Status) Active() bool {
	return s != Offline
}

// Idle reports whether s is one of the server-inferred inactivity states.
func (s Status) Idle() bool {
	return s == Away || s == Snooze
}
