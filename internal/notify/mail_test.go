package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tools.zach/dev/steamwatch/internal/logger"
	"tools.zach/dev/steamwatch/internal/presence"
)

type fakeMailer struct {
	sent []Mail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, m Mail) error {
	f.sent = append(f.sent, m)
	return f.err
}

// ///////////////////////////////////////////////
// Selection
// ///////////////////////////////////////////////

func TestSelect_Gating(t *testing.T) {
	online := statusEvent(presence.Offline, presence.Online, -30, 0)
	away := statusEvent(presence.Online, presence.Away, 0, 10)
	started := presence.ActivityChanged{Kind: presence.ActivityStarted, NewID: "620", NewName: "Portal 2", Now: at(0)}
	authFail := &Failure{Err: errors.New("forbidden"), Auth: true}
	netFail := &Failure{Err: errors.New("timeout")}

	tests := []struct {
		name     string
		settings Settings
		events   []presence.Event
		failure  *Failure
		want     int
	}{
		{"nothing enabled", Settings{}, []presence.Event{online, started}, nil, 0},
		{"all status changes", Settings{StatusChanges: true}, []presence.Event{online, away}, nil, 2},
		{"active inactive only session edges", Settings{ActiveInactive: true}, []presence.Event{online, away}, nil, 1},
		{"activity changes", Settings{ActivityChanges: true}, []presence.Event{online, started}, nil, 1},
		{"ignored activity", Settings{ActivityChanges: true, IgnoreActivities: []string{"portal*"}}, []presence.Event{started}, nil, 0},
		{"auth failure mailed", Settings{Errors: true}, nil, authFail, 1},
		{"auth failure muted", Settings{}, nil, authFail, 0},
		{"transient failure never mailed", Settings{Errors: true}, nil, netFail, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(Batch{Account: acct, At: at(0), Events: tt.events, Failure: tt.failure, Settings: tt.settings})
			if len(got) != tt.want {
				t.Errorf("Select() = %d messages, want %d", len(got), tt.want)
			}
		})
	}
}

func TestIgnored_Switch(t *testing.T) {
	patterns := []string{"Wallpaper Engine"}
	tests := []struct {
		name string
		ev   presence.ActivityChanged
		want bool
	}{
		{"ignored to watched", presence.ActivityChanged{Kind: presence.ActivitySwitched, OldName: "Wallpaper Engine", NewName: "Portal 2"}, false},
		{"watched to ignored", presence.ActivityChanged{Kind: presence.ActivitySwitched, OldName: "Portal 2", NewName: "Wallpaper Engine"}, false},
		{"stopped ignored", presence.ActivityChanged{Kind: presence.ActivityStopped, OldName: "wallpaper engine"}, true},
		{"unnamed never ignored", presence.ActivityChanged{Kind: presence.ActivityStarted, NewID: "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ignored(patterns, tt.ev); got != tt.want {
				t.Errorf("ignored() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		patterns []string
		name     string
		want     bool
	}{
		{[]string{"Counter-Strike*"}, "Counter-Strike 2", true},
		{[]string{"*Simulator"}, "Goat Simulator", true},
		{[]string{"{Dota 2,Portal 2}"}, "portal 2", true},
		{[]string{"Dota ?"}, "Dota 2", true},
		{[]string{"Dota ?"}, "Dota 22", false},
		{[]string{"[invalid"}, "[invalid", false},
		{nil, "anything", false},
	}
	for _, tt := range tests {
		if got := MatchesAny(tt.patterns, tt.name); got != tt.want {
			t.Errorf("MatchesAny(%v, %q) = %v, want %v", tt.patterns, tt.name, got, tt.want)
		}
	}
}

// ///////////////////////////////////////////////
// Mail Sink
// ///////////////////////////////////////////////

func TestMailSink_Deliver(t *testing.T) {
	m := &fakeMailer{}
	s := NewMailSink(m, "bot@example.com", "me@example.com", logger.Discard())

	b := Batch{
		Account:  acct,
		At:       at(0),
		Events:   []presence.Event{statusEvent(presence.Offline, presence.Online, -30, 0)},
		Settings: Settings{ActiveInactive: true},
	}
	if err := s.Deliver(context.Background(), b); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(m.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(m.sent))
	}
	got := m.sent[0]
	if got.From != "bot@example.com" || got.To != "me@example.com" {
		t.Errorf("addresses = %q -> %q", got.From, got.To)
	}
	if !strings.HasPrefix(got.Subject, "Steam user alice is now online") {
		t.Errorf("Subject = %q", got.Subject)
	}
	if !got.Date.Equal(at(0)) {
		t.Errorf("Date = %v, want tick time", got.Date)
	}
}

func TestMailSink_JoinsErrors(t *testing.T) {
	m := &fakeMailer{err: errors.New("relay down")}
	s := NewMailSink(m, "a@example.com", "b@example.com", logger.Discard())

	b := Batch{
		Account: acct,
		At:      at(10),
		Events: []presence.Event{
			statusEvent(presence.Online, presence.Away, 0, 10),
			statusEvent(presence.Away, presence.Online, 10, 10),
		},
		Settings: Settings{StatusChanges: true},
	}
	err := s.Deliver(context.Background(), b)
	if err == nil || !strings.Contains(err.Error(), "relay down") {
		t.Fatalf("Deliver error = %v", err)
	}
	if len(m.sent) != 2 {
		t.Errorf("every message should be attempted, sent %d", len(m.sent))
	}
}

// ///////////////////////////////////////////////
// Message Encoding
// ///////////////////////////////////////////////

func TestBuildMessage(t *testing.T) {
	raw := string(BuildMessage(Mail{
		From:    "bot@example.com",
		To:      "me@example.com",
		Subject: "Steam user Zoë is now online",
		Body:    "line one\nline two",
		Date:    at(0),
	}))

	for _, want := range []string{
		"From: bot@example.com\r\n",
		"To: me@example.com\r\n",
		"Subject: =?utf-8?q?",
		"Date: Sun, 21 Apr 2024 14:00:00 +0000\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
		"\r\n\r\nline one\r\nline two\r\n",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q:\n%s", want, raw)
		}
	}
}

func TestBuildMessage_ASCIISubjectUnencoded(t *testing.T) {
	raw := string(BuildMessage(Mail{Subject: "plain", Date: at(0)}))
	if !strings.Contains(raw, "Subject: plain\r\n") {
		t.Errorf("ASCII subject should pass through:\n%s", raw)
	}
}
