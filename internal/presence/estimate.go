package presence

import "time"

// ///////////////////////////////////////////////
// Inactivity Estimation
// ///////////////////////////////////////////////

// The API only reports Away once the client has been idle for AwayAfter, and
// Snooze once it has been Away for SnoozeAfter. Everything below backdates
// from those thresholds; none of it is an exact measurement.

// EstimateAway returns the estimate for an active -> Away transition at now,
// where the previous status lasted elapsed.
//
// LastActiveAt is now - awayAfter. ActivePortion + IdlePortion always equals
// elapsed, and both are non-negative.
func EstimateAway(now time.Time, elapsed, awayAfter time.Duration) Inactivity {
	elapsed = max(elapsed, 0)
	return Inactivity{
		LastActiveAt:  now.Add(-awayAfter),
		ActivePortion: max(elapsed-awayAfter, 0),
		IdlePortion:   min(awayAfter, elapsed),
		Total:         awayAfter,
	}
}

// EstimateSnooze returns the estimate for an Away -> Snooze transition at
// now. lastActive is the estimate made when Away began (zero if the tracker
// started while the account was already away), awaySince is when Away began.
func EstimateSnooze(now, lastActive, awaySince time.Time, awayAfter time.Duration) Inactivity {
	if lastActive.IsZero() {
		lastActive = awaySince.Add(-awayAfter)
	}
	return Inactivity{
		LastActiveAt: lastActive,
		Total:        max(now.Sub(lastActive), 0),
	}
}

// EstimateDirectSnooze covers an active -> Snooze transition where the Away
// step was never observed (it fell between two polls). Both thresholds have
// passed, but the account was active at least when the previous status began.
func EstimateDirectSnooze(now, since time.Time, th Thresholds) Inactivity {
	lastActive := now.Add(-(th.AwayAfter + th.SnoozeAfter))
	if lastActive.Before(since) {
		lastActive = since
	}
	return Inactivity{
		LastActiveAt: lastActive,
		Total:        max(now.Sub(lastActive), 0),
	}
}
