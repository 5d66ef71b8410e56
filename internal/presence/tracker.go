package presence

import (
	"log/slog"
	"time"
)

// ///////////////////////////////////////////////
// Tracker
// ///////////////////////////////////////////////

// Saver persists the durable part of the state. Failures are logged by the
// tracker and never propagated; the in-memory [State] stays authoritative.
type Saver interface {
	Save(Record) error
}

// Tracker consumes snapshots in sequence and derives session-level events.
// It holds no state of its own: callers thread [State] through
// [Tracker.Initialize] and [Tracker.Process].
type Tracker struct {
	th    Thresholds
	saver Saver
	log   *slog.Logger
}

// NewTracker creates a Tracker. saver may be nil to disable persistence;
// log defaults to [slog.Default].
func NewTracker(th Thresholds, saver Saver, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{th: th, saver: saver, log: log}
}

// Initialize builds the starting state from the persisted record (nil when
// none could be loaded) and the first successful snapshot.
//
//   - No record: history starts at now, or at the API's last logoff when the
//     account is offline. The record is written immediately.
//   - Same status as recorded: the recorded StatusSince is trusted, except
//     that an offline account takes a later API logoff time.
//   - Different status: the record seeds the state and the first snapshot is
//     handled as a regular status change, so the returned events report how
//     long the recorded status lasted. The change happens at now, or at the
//     API's last logoff when the account is offline and logged off after the
//     recorded StatusSince. The recorded status is never merged into a
//     session.
//
// The first snapshot's activity is adopted without an [ActivityChanged] event.
func (t *Tracker) Initialize(persisted *Record, first Snapshot, now time.Time) (State, []Event) {
	if persisted == nil || !persisted.Status.Valid() || persisted.StatusSince.IsZero() {
		since := now
		if first.Status == Offline && !first.LastLogoff.IsZero() && first.LastLogoff.Before(now) {
			since = first.LastLogoff
		}
		s := State{Status: first.Status, StatusSince: since}
		if s.Status.Active() {
			s.OnlineSessionStart = since
		}
		adoptActivity(&s, first, now)
		t.persist(s)
		return s, nil
	}

	seed := State{Status: persisted.Status, StatusSince: persisted.StatusSince}
	if seed.Status.Active() {
		seed.OnlineSessionStart = persisted.StatusSince
	}
	if seed.Status.Idle() {
		seed.EstimatedLastActive = persisted.EstimatedLastActive
	}

	changedAt := now
	if first.Status == Offline && first.LastLogoff.After(persisted.StatusSince) && first.LastLogoff.Before(now) {
		changedAt = first.LastLogoff
	}

	if persisted.Status == first.Status {
		adoptActivity(&seed, first, now)
		if !changedAt.Equal(now) {
			seed.StatusSince = changedAt
			t.persist(seed)
		}
		return seed, nil
	}

	next := seed
	ev, _ := t.changeStatus(&next, seed, first, changedAt)
	adoptActivity(&next, first, now)
	t.persist(next)
	return next, []Event{ev}
}

// Process applies snap to cur and returns the new state plus the events it
// produced, status change first. When neither status nor activity differ it
// returns cur unchanged, no events, and writes nothing.
func (t *Tracker) Process(cur State, snap Snapshot, now time.Time) (State, []Event) {
	statusChanged := snap.Status != cur.Status
	activityChanged := snap.ActivityID != cur.ActivityID
	if !statusChanged && !activityChanged {
		return cur, nil
	}

	next := cur
	var events []Event
	var folded bool

	if statusChanged {
		var ev StatusChanged
		ev, folded = t.changeStatus(&next, cur, snap, now)
		events = append(events, ev)
	}
	if activityChanged {
		events = append(events, changeActivity(&next, cur, snap, now, folded))
	}
	if statusChanged {
		t.persist(next)
	}
	return next, events
}

// changeStatus applies a status transition to next (a copy of cur) and
// reports whether the running activity was folded into the activity total
// because the session ended.
func (t *Tracker) changeStatus(next *State, cur State, snap Snapshot, now time.Time) (StatusChanged, bool) {
	elapsed := max(now.Sub(cur.StatusSince), 0)
	ev := StatusChanged{
		From:         cur.Status,
		To:           snap.Status,
		Since:        cur.StatusSince,
		Now:          now,
		Elapsed:      elapsed,
		ActivityName: snap.ActivityName,
	}
	var folded bool

	switch {
	case ev.WentActive():
		if elapsed > t.th.OfflineInterrupt || cur.PriorOnlineSessionStart.IsZero() {
			next.OnlineSessionStart = now
			next.ActivityTotal = 0
			next.ActivityCount = 0
			if cur.ActivityID != "" {
				// Time before the fresh session never counts toward it.
				next.ActivityFoldedAt = now
				if snap.ActivityID == cur.ActivityID {
					next.ActivityCount = 1
				}
			}
		} else {
			next.OnlineSessionStart = cur.PriorOnlineSessionStart
			ev.MergedShortInterruption = true
		}
		ev.SessionStart = next.OnlineSessionStart

	case ev.WentOffline():
		total := cur.ActivityTotal
		if cur.ActivityID != "" && !cur.ActivityStartedAt.IsZero() {
			total += unfolded(cur, now)
			// An activity still reported while offline keeps its start; the
			// fold mark stops a later stop from counting the span again.
			next.ActivityFoldedAt = now
			folded = true
		}
		next.ActivityTotal = total
		if !cur.OnlineSessionStart.IsZero() {
			ev.Session = &SessionSummary{
				Start:         cur.OnlineSessionStart,
				Duration:      max(now.Sub(cur.OnlineSessionStart), 0),
				ActivityTotal: total,
				ActivityCount: cur.ActivityCount,
			}
		}
		next.PriorOnlineSessionStart = cur.OnlineSessionStart
		next.OnlineSessionStart = time.Time{}

	case snap.Status == Away && !cur.Status.Idle():
		est := EstimateAway(now, elapsed, t.th.AwayAfter)
		next.EstimatedLastActive = est.LastActiveAt
		ev.Inactivity = &est

	case snap.Status == Snooze && cur.Status == Away:
		est := EstimateSnooze(now, cur.EstimatedLastActive, cur.StatusSince, t.th.AwayAfter)
		next.EstimatedLastActive = est.LastActiveAt
		ev.Inactivity = &est

	case snap.Status == Snooze && !cur.Status.Idle():
		est := EstimateDirectSnooze(now, cur.StatusSince, t.th)
		next.EstimatedLastActive = est.LastActiveAt
		ev.Inactivity = &est
	}

	if !snap.Status.Idle() {
		next.EstimatedLastActive = time.Time{}
	}
	next.Status = snap.Status
	next.StatusSince = now
	return ev, folded
}

// changeActivity applies an activity start, stop or switch to next. folded
// is true when changeStatus already added the old activity's time to the
// total in this tick.
func changeActivity(next *State, cur State, snap Snapshot, now time.Time, folded bool) ActivityChanged {
	ev := ActivityChanged{
		OldID:   cur.ActivityID,
		OldName: cur.ActivityName,
		NewID:   snap.ActivityID,
		NewName: snap.ActivityName,
		Now:     now,
	}
	if cur.ActivityID != "" {
		ev.StartedAt = cur.ActivityStartedAt
		ev.Played = max(now.Sub(cur.ActivityStartedAt), 0)
	}

	switch {
	case cur.ActivityID == "":
		ev.Kind = ActivityStarted
		next.ActivityStartedAt = now
		next.ActivityCount++
	case snap.ActivityID == "":
		ev.Kind = ActivityStopped
		if !folded {
			next.ActivityTotal += unfolded(*next, now)
		}
		next.ActivityStartedAt = time.Time{}
	default:
		ev.Kind = ActivitySwitched
		if !folded {
			next.ActivityTotal += unfolded(*next, now)
		}
		next.ActivityCount++
		next.ActivityStartedAt = now
	}
	next.ActivityFoldedAt = time.Time{}

	next.ActivityID = snap.ActivityID
	next.ActivityName = snap.ActivityName
	return ev
}

// unfolded returns the running activity's time not yet in ActivityTotal.
func unfolded(cur State, now time.Time) time.Duration {
	from := cur.ActivityStartedAt
	if cur.ActivityFoldedAt.After(from) {
		from = cur.ActivityFoldedAt
	}
	return max(now.Sub(from), 0)
}

// adoptActivity takes over the snapshot's activity without emitting an event.
func adoptActivity(s *State, snap Snapshot, now time.Time) {
	if !snap.HasActivity() {
		return
	}
	s.ActivityID = snap.ActivityID
	s.ActivityName = snap.ActivityName
	s.ActivityStartedAt = now
	if s.ActivityCount == 0 {
		s.ActivityCount = 1
	}
}

// persist writes the durable record through the saver, logging failures.
func (t *Tracker) persist(s State) {
	if t.saver == nil {
		return
	}
	if err := t.saver.Save(s.Record()); err != nil {
		t.log.Warn("failed to persist presence", "status", s.Status.String(), "error", err)
	}
}
