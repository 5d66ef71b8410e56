package migrate

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

// ///////////////////////////////////////////////
// run
// ///////////////////////////////////////////////

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRunSkipsOldVersions(t *testing.T) {
	called := false
	migrations := []Migration{
		{Version: 1, Description: "already applied", Upgrade: func(d []byte) ([]byte, error) {
			called = true
			return d, nil
		}},
	}
	out, version, err := run(quiet, []byte("data"), 1, migrations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatal("migration should have been skipped")
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}
	if string(out) != "data" {
		t.Fatalf("expected data unchanged, got %q", out)
	}
}

func TestRunAppliesSequentially(t *testing.T) {
	migrations := []Migration{
		{Version: 2, Description: "v1->v2", Upgrade: func(d []byte) ([]byte, error) {
			return append(d, []byte("-v2")...), nil
		}},
		{Version: 3, Description: "v2->v3", Upgrade: func(d []byte) ([]byte, error) {
			return append(d, []byte("-v3")...), nil
		}},
	}
	out, version, err := run(quiet, []byte("data"), 1, migrations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 3 {
		t.Fatalf("expected version 3, got %d", version)
	}
	if string(out) != "data-v2-v3" {
		t.Fatalf("expected data-v2-v3, got %q", out)
	}
}

func TestRunStopsOnError(t *testing.T) {
	migrations := []Migration{
		{Version: 2, Description: "v1->v2", Upgrade: func(d []byte) ([]byte, error) {
			return append(d, []byte("-v2")...), nil
		}},
		{Version: 3, Description: "v2->v3 fails", Upgrade: func(d []byte) ([]byte, error) {
			return nil, fmt.Errorf("boom")
		}},
	}
	_, version, err := run(quiet, []byte("data"), 1, migrations)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "migration to v3 failed") {
		t.Fatalf("expected migration error message, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if version != 2 {
		t.Fatalf("expected version 2 (stopped before v3), got %d", version)
	}
}

func TestRunNoMigrations(t *testing.T) {
	out, version, err := run(quiet, []byte("original"), 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}
	if string(out) != "original" {
		t.Fatalf("expected original, got %q", out)
	}
}

// ///////////////////////////////////////////////
// Pending
// ///////////////////////////////////////////////

func TestPendingSortsAndFilters(t *testing.T) {
	migs := []Migration{{Version: 4}, {Version: 2}, {Version: 3}, {Version: 1}}
	got := Pending(2, migs)
	if len(got) != 2 || got[0].Version != 3 || got[1].Version != 4 {
		t.Fatalf("Pending(2) = %+v, want versions 3, 4", got)
	}
	if len(Pending(4, migs)) != 0 {
		t.Fatal("expected nothing pending at the newest version")
	}
}

func TestRunAppliesOutOfOrderRegistrations(t *testing.T) {
	migrations := []Migration{
		{Version: 3, Upgrade: func(d []byte) ([]byte, error) { return append(d, 'c'), nil }},
		{Version: 2, Upgrade: func(d []byte) ([]byte, error) { return append(d, 'b'), nil }},
	}
	out, version, err := run(quiet, []byte("a"), 1, migrations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "abc" || version != 3 {
		t.Fatalf("Run = (%q, %d), want (abc, 3)", out, version)
	}
}

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

func TestRegistryStale(t *testing.T) {
	tests := []struct {
		name    string
		current int
		migs    []Migration
		file    int
		want    bool
	}{
		{"older file", 2, nil, 1, true},
		{"up to date", 2, nil, 2, false},
		{"up to date with applied steps", 2, []Migration{{Version: 2}}, 2, false},
		{"future file", 2, nil, 3, false},
		{"unapplied step at current", 1, []Migration{{Version: 2}}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Registry{CurrentVersion: tt.current, Migrations: tt.migs}
			if got := r.Stale(tt.file); got != tt.want {
				t.Errorf("Stale(%d) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}

func TestRegistryExportedForOverride(t *testing.T) {
	// Verify Config and State registries exist with expected defaults
	if Config.CurrentVersion != 1 {
		t.Fatalf("expected Config.CurrentVersion=1, got %d", Config.CurrentVersion)
	}
	if State.CurrentVersion != 2 {
		t.Fatalf("expected State.CurrentVersion=2, got %d", State.CurrentVersion)
	}

	// Verify Migrations slice is exported and overridable
	orig := Config.Migrations
	Config.Migrations = []Migration{{Version: 99, Description: "test override"}}
	if len(Config.Migrations) != 1 || Config.Migrations[0].Version != 99 {
		t.Fatal("expected override to work")
	}
	Config.Migrations = orig
}

func TestRegistryRunLabelsErrors(t *testing.T) {
	r := &Registry{Name: "state", CurrentVersion: 2}
	r.Register(Migration{Version: 2, Description: "explode", Upgrade: func(d []byte) ([]byte, error) {
		return nil, fmt.Errorf("bad array")
	}})
	_, _, err := r.Run([]byte("[]"), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "state: migration to v2 failed") {
		t.Fatalf("expected labelled error, got %v", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := &Registry{CurrentVersion: 2}
	r.Register(Migration{Version: 2, Description: "first"})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate version")
		}
	}()
	r.Register(Migration{Version: 2, Description: "second"})
}

func TestIsFuture(t *testing.T) {
	r := &Registry{CurrentVersion: 2}
	if r.IsFuture(2) || r.IsFuture(1) {
		t.Fatal("current and older versions are not future")
	}
	if !r.IsFuture(3) {
		t.Fatal("expected version 3 to be future")
	}
}
