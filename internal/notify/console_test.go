package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tools.zach/dev/steamwatch/internal/presence"
)

func newTestConsole() (*ConsoleSink, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewConsoleSink(out), out
}

func TestConsole_StatusChange(t *testing.T) {
	c, out := newTestConsole()

	ev := statusEvent(presence.Offline, presence.Online, -5, 0)
	ev.MergedShortInterruption = true
	ev.SessionStart = at(-60)
	ev.ActivityName = "Portal 2"

	err := c.Deliver(context.Background(), Batch{Account: acct, At: at(0), Events: []presence.Event{ev}})
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Steam user alice changed status from OFFLINE to ONLINE")
	assert.Contains(t, s, "User was offline for 5 minutes")
	assert.Contains(t, s, "*** User got ACTIVE ! (was offline since Sun 21 Apr 2024, 13:55:00)")
	assert.Contains(t, s, "online start timestamp set back to Sun 21 Apr 2024, 13:00:00")
	assert.Contains(t, s, "User is currently in-game: Portal 2")
	assert.Contains(t, s, "Timestamp: Sun, 21 Apr 2024, 14:00:00")
}

func TestConsole_Offline(t *testing.T) {
	c, out := newTestConsole()

	ev := statusEvent(presence.Online, presence.Offline, 0, 120)
	ev.Session = &presence.SessionSummary{Start: at(0), Duration: 2 * time.Hour}

	require.NoError(t, c.Deliver(context.Background(), Batch{Account: acct, At: at(120), Events: []presence.Event{ev}}))
	assert.Contains(t, out.String(), "*** User got OFFLINE ! (after 2 hours: Sun 21 Apr 14:00 - 16:00)")
}

func TestConsole_ActivityChanges(t *testing.T) {
	c, out := newTestConsole()

	events := []presence.Event{
		presence.ActivityChanged{Kind: presence.ActivityStarted, NewID: "620", NewName: "Portal 2", Now: at(0)},
		presence.ActivityChanged{Kind: presence.ActivitySwitched, OldID: "620", OldName: "Portal 2", NewID: "440", NewName: "TF2", StartedAt: at(0), Now: at(30)},
		presence.ActivityChanged{Kind: presence.ActivityStopped, OldID: "440", OldName: "TF2", StartedAt: at(30), Now: at(90)},
	}
	require.NoError(t, c.Deliver(context.Background(), Batch{Account: acct, At: at(90), Events: events}))

	s := out.String()
	assert.Contains(t, s, "started playing 'Portal 2'")
	assert.Contains(t, s, "changed game from 'Portal 2' to 'TF2' after 30 minutes")
	assert.Contains(t, s, "stopped playing 'TF2' after 1 hour")
	assert.Contains(t, s, "User played game from Sun 21 Apr 14:30 to 15:30")
}

func TestConsole_Failure(t *testing.T) {
	c, out := newTestConsole()

	f := &Failure{Err: errors.New("steam: api key rejected"), Auth: true, RetryIn: 90 * time.Second}
	require.NoError(t, c.Deliver(context.Background(), Batch{Account: acct, At: at(0), Failure: f}))

	s := out.String()
	assert.Contains(t, s, "retrying in 1 minute, 30 seconds - steam: api key rejected")
	assert.Contains(t, s, "API key might not be valid anymore!")
	assert.NotContains(t, s, "Timestamp:")
}

func TestConsole_Startup(t *testing.T) {
	c, out := newTestConsole()

	c.Startup(StartupInfo{
		SteamID:        acct.SteamID,
		CheckInterval:  90 * time.Second,
		ActiveInterval: 30 * time.Second,
		Settings:       Settings{ActiveInactive: true, Errors: true, IgnoreActivities: []string{"Wallpaper*"}},
		LogFile:        "/tmp/steamwatch.log",
	})

	s := out.String()
	assert.Contains(t, s, "[check interval: 1 minute, 30 seconds] [active check interval: 30 seconds]")
	assert.Contains(t, s, "[active/inactive status changes = true] [game changes = false]")
	assert.Contains(t, s, "[all status changes = false] [errors = true]")
	assert.Contains(t, s, "Wallpaper*")
	assert.Contains(t, s, "not configured")
	assert.Contains(t, s, "/tmp/steamwatch.log")
	assert.Contains(t, s, "CSV logging enabled:\t\tfalse")
}

func TestConsole_Banner(t *testing.T) {
	c, out := newTestConsole()

	c.Banner(BannerInfo{
		Name:          "alice",
		RealName:      "Alice Liddell",
		Status:        presence.Offline,
		Visibility:    "public",
		Created:       time.Date(2010, 1, 2, 3, 4, 5, 0, time.UTC),
		StatusSince:   at(-90),
		LastAvailable: at(-90),
		RecentGames:   []string{"Portal 2", "TF2"},
		Now:           at(0),
	})

	s := out.String()
	assert.Contains(t, s, "Display name:\t\t\talice")
	assert.Contains(t, s, "Real name:\t\t\tAlice Liddell")
	assert.Contains(t, s, "Status:\t\t\t\tOFFLINE")
	assert.Contains(t, s, "Account creation date:\t\tSat 02 Jan 2010, 03:04:05")
	assert.Contains(t, s, "User is OFFLINE for:\t\t1 hour, 30 minutes")
	assert.Contains(t, s, "1 Portal 2\n2 TF2\n")
	assert.NotContains(t, s, "currently in-game")
}

func TestConsole_AckAndAlive(t *testing.T) {
	c, out := newTestConsole()

	c.Ack("SIGUSR1", "Email notifications: [active/inactive status changes = false]")
	c.Alive(at(0))

	s := out.String()
	assert.Contains(t, s, "* Signal SIGUSR1 received\n* Email notifications: [active/inactive status changes = false]\n")
	assert.Contains(t, s, "Alive check, timestamp: Sun, 21 Apr 2024, 14:00:00")
}
