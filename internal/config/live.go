package config

import (
	"slices"
	"sync/atomic"
	"time"
)

// ///////////////////////////////////////////////
// Runtime Snapshot
// ///////////////////////////////////////////////

// NotifySettings holds the notification toggles that can change at runtime.
type NotifySettings struct {
	ActiveInactive   bool
	ActivityChanges  bool
	StatusChanges    bool
	Errors           bool
	IgnoreActivities []string
}

// Runtime is an immutable snapshot of the settings that signals and config
// file edits may change while the daemon runs. The poll loop reads one
// snapshot per tick so every decision in a tick sees the same values.
type Runtime struct {
	// CheckInterval is the polling interval while offline.
	CheckInterval time.Duration
	// ActiveInterval is the polling interval while online.
	ActiveInterval time.Duration
	// ActiveStep is the signal-driven ActiveInterval increment.
	ActiveStep time.Duration
	// AliveInterval is the "still running" log cadence while offline;
	// zero disables it.
	AliveInterval time.Duration
	// Notify holds the notification toggles.
	Notify NotifySettings
}

// clone returns a deep copy so an update never shares the ignore list with
// the snapshot other goroutines may be reading.
func (r Runtime) clone() Runtime {
	r.Notify.IgnoreActivities = slices.Clone(r.Notify.IgnoreActivities)
	return r
}

// ShiftActiveInterval moves ActiveInterval by steps * ActiveStep, never
// going below one step.
func (r Runtime) ShiftActiveInterval(steps int) Runtime {
	next := r.ActiveInterval + time.Duration(steps)*r.ActiveStep
	if next < r.ActiveStep {
		next = r.ActiveStep
	}
	r.ActiveInterval = next
	return r
}

// ///////////////////////////////////////////////
// Live
// ///////////////////////////////////////////////

// Live holds the current [Runtime] behind an atomic pointer. Writers replace
// the whole snapshot; readers never block.
type Live struct {
	p atomic.Pointer[Runtime]
}

// NewLive returns a Live seeded with r.
func NewLive(r Runtime) *Live {
	l := &Live{}
	c := r.clone()
	l.p.Store(&c)
	return l
}

// Load returns the current snapshot.
func (l *Live) Load() Runtime {
	return *l.p.Load()
}

// Update applies fn copy-on-write and returns the stored result. fn may be
// called more than once under contention and must not have side effects.
func (l *Live) Update(fn func(Runtime) Runtime) Runtime {
	for {
		old := l.p.Load()
		next := fn(old.clone())
		if l.p.CompareAndSwap(old, &next) {
			return next
		}
	}
}
