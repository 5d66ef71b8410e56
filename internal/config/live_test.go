package config

import (
	"sync"
	"testing"
	"time"
)

func testRuntime() Runtime {
	return Runtime{
		CheckInterval:  90 * time.Second,
		ActiveInterval: 30 * time.Second,
		ActiveStep:     30 * time.Second,
		Notify:         NotifySettings{Errors: true, IgnoreActivities: []string{"a"}},
	}
}

func TestShiftActiveInterval(t *testing.T) {
	rt := testRuntime()
	if got := rt.ShiftActiveInterval(1).ActiveInterval; got != time.Minute {
		t.Errorf("+1 step = %v, want 1m", got)
	}
	if got := rt.ShiftActiveInterval(-1).ActiveInterval; got != 30*time.Second {
		t.Errorf("-1 step = %v, want clamp at 30s", got)
	}
	if rt.ActiveInterval != 30*time.Second {
		t.Error("ShiftActiveInterval mutated its receiver")
	}
}

func TestLiveUpdate(t *testing.T) {
	l := NewLive(testRuntime())
	got := l.Update(func(r Runtime) Runtime {
		r.Notify.StatusChanges = !r.Notify.StatusChanges
		r.Notify.IgnoreActivities[0] = "changed"
		return r
	})
	if !got.Notify.StatusChanges || !l.Load().Notify.StatusChanges {
		t.Error("toggle not stored")
	}
	if l.Load().Notify.IgnoreActivities[0] != "changed" {
		t.Error("update not visible")
	}
}

func TestLiveUpdateDoesNotAliasPreviousSnapshot(t *testing.T) {
	l := NewLive(testRuntime())
	before := l.Load()
	l.Update(func(r Runtime) Runtime {
		r.Notify.IgnoreActivities[0] = "changed"
		return r
	})
	if before.Notify.IgnoreActivities[0] != "a" {
		t.Errorf("earlier snapshot changed to %q", before.Notify.IgnoreActivities[0])
	}
}

func TestLiveConcurrentUpdates(t *testing.T) {
	l := NewLive(testRuntime())
	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			l.Update(func(r Runtime) Runtime { return r.ShiftActiveInterval(1) })
		}()
	}
	wg.Wait()
	want := 30*time.Second + n*30*time.Second
	if got := l.Load().ActiveInterval; got != want {
		t.Errorf("ActiveInterval = %v, want %v", got, want)
	}
}
