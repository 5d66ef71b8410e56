package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"tools.zach/dev/steamwatch/internal/presence"
	"tools.zach/dev/steamwatch/internal/timefmt"
)

// ///////////////////////////////////////////////
// Console Sink
// ///////////////////////////////////////////////

var (
	green   = color.New(color.FgHiGreen).SprintFunc()
	red     = color.New(color.FgHiRed).SprintFunc()
	yellow  = color.New(color.FgHiYellow).SprintFunc()
	cyan    = color.New(color.FgHiCyan).SprintFunc()
	bold    = color.New(color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	divider = strings.Repeat("-", 72)
)

// statusColor colors a status name by category.
func statusColor(s presence.Status) string {
	switch {
	case s == presence.Offline:
		return red(s.Upper())
	case s.Idle():
		return yellow(s.Upper())
	default:
		return green(s.Upper())
	}
}

// ConsoleSink prints human-readable change reports.
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink creates a ConsoleSink writing to out.
func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

// Name implements [Sink].
func (*ConsoleSink) Name() string { return "console" }

// printf writes one formatted line.
func (c *ConsoleSink) printf(format string, a ...any) {
	fmt.Fprintf(c.out, format+"\n", a...)
}

// Deliver implements [Sink].
func (c *ConsoleSink) Deliver(_ context.Context, b Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := b.Account.Display()

	if f := b.Failure; f != nil {
		c.printf("%s retrying in %s - %v", red("Error,"), timefmt.Duration(f.RetryIn), f.Err)
		if f.Auth {
			c.printf("* %s", red("API key might not be valid anymore!"))
		}
		c.printf("%s", divider)
	}

	for _, ev := range b.Events {
		switch e := ev.(type) {
		case presence.StatusChanged:
			c.printf("Steam user %s changed status from %s to %s", bold(name), statusColor(e.From), statusColor(e.To))
			c.printf("User was %s for %s (%s)", e.From, timefmt.Span(e.Since, e.Now), timefmt.Range(e.Since, e.Now, true))
			if e.WentActive() {
				c.printf("*** User got %s (was offline since %s)", green("ACTIVE !"), timefmt.Date(e.Since))
				if e.MergedShortInterruption {
					c.printf("Short offline interruption, online start timestamp set back to %s", timefmt.Date(e.SessionStart))
				}
			}
			if e.WentOffline() {
				msg := ""
				if s := e.Session; s != nil {
					msg = fmt.Sprintf("(after %s: %s)", timefmt.SpanMinutes(s.Start, e.Now), timefmt.Range(s.Start, e.Now, true))
				}
				c.printf("*** User got %s %s", red("OFFLINE !"), msg)
			}
			if in := e.Inactivity; in != nil {
				c.printf("Estimated last activity: %s (inactive for %s)", timefmt.Date(in.LastActiveAt), timefmt.Duration(in.Total))
			}
			if e.ActivityName != "" {
				c.printf("User is currently in-game: %s", cyan(e.ActivityName))
			}

		case presence.ActivityChanged:
			oldName := activityLabel(e.OldName, e.OldID)
			newName := activityLabel(e.NewName, e.NewID)
			switch e.Kind {
			case presence.ActivityStarted:
				c.printf("Steam user %s started playing '%s'", bold(name), cyan(newName))
			case presence.ActivityStopped:
				c.printf("Steam user %s stopped playing '%s' after %s", bold(name), cyan(oldName), timefmt.Span(e.StartedAt, e.Now))
			default:
				c.printf("Steam user %s changed game from '%s' to '%s' after %s", bold(name), cyan(oldName), cyan(newName), timefmt.Span(e.StartedAt, e.Now))
			}
			if e.Kind != presence.ActivityStarted {
				c.printf("User played game from %s", timefmt.RangeSep(e.StartedAt, e.Now, " to ", true))
			}

		default:
			return errors.New("unknown event type")
		}
	}

	if len(b.Events) > 0 {
		c.printf("%s", faint("Timestamp: "+timefmt.Stamp(b.At)))
		c.printf("%s", divider)
	}
	return nil
}

// ///////////////////////////////////////////////
// Startup Output
// ///////////////////////////////////////////////

// StartupInfo is the effective configuration printed before monitoring.
type StartupInfo struct {
	SteamID        string
	CheckInterval  time.Duration
	ActiveInterval time.Duration
	Settings       Settings
	// LogFile is empty when file logging is disabled.
	LogFile string
	// CSVFile is empty when CSV logging is disabled.
	CSVFile string
	// MailTo is empty when mail is not configured.
	MailTo string
}

// Startup prints the effective configuration.
func (c *ConsoleSink) Startup(info StartupInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.printf("* Steam ID:\t\t\t%s", info.SteamID)
	c.printf("* Steam timers:\t\t\t[check interval: %s] [active check interval: %s]",
		timefmt.Duration(info.CheckInterval), timefmt.Duration(info.ActiveInterval))
	s := info.Settings
	c.printf("* Email notifications:\t\t[active/inactive status changes = %t] [game changes = %t]", s.ActiveInactive, s.ActivityChanges)
	c.printf("*\t\t\t\t[all status changes = %t] [errors = %t]", s.StatusChanges, s.Errors)
	if len(s.IgnoreActivities) > 0 {
		c.printf("* Ignored games:\t\t%s", strings.Join(s.IgnoreActivities, ", "))
	}
	if info.MailTo == "" {
		c.printf("* Email delivery:\t\tnot configured")
	} else {
		c.printf("* Email delivery:\t\t%s", info.MailTo)
	}
	if info.LogFile == "" {
		c.printf("* Output logging disabled:\ttrue")
	} else {
		c.printf("* Output logging enabled:\t%s", info.LogFile)
	}
	if info.CSVFile == "" {
		c.printf("* CSV logging enabled:\t\tfalse")
	} else {
		c.printf("* CSV logging enabled:\t\ttrue (%s)", info.CSVFile)
	}
	c.printf("%s", divider)
}

// BannerInfo describes the tracked account at startup.
type BannerInfo struct {
	Name       string
	RealName   string
	Status     presence.Status
	Visibility string
	// Created is zero when the profile hides it.
	Created time.Time
	// StatusSince is when the current status began.
	StatusSince time.Time
	// LastAvailable is the end of the last online session, zero if unknown
	// or the account is online.
	LastAvailable time.Time
	// Game is the game being played, empty for none.
	Game string
	// RecentGames lists recently played game names, most recent first.
	RecentGames []string
	Now         time.Time
}

// Banner prints the account overview shown once monitoring starts.
func (c *ConsoleSink) Banner(info BannerInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.printf("\nDisplay name:\t\t\t%s", bold(info.Name))
	if info.RealName != "" {
		c.printf("Real name:\t\t\t%s", info.RealName)
	}
	c.printf("\nStatus:\t\t\t\t%s", statusColor(info.Status))
	c.printf("Profile visibility:\t\t%s", info.Visibility)
	if !info.Created.IsZero() {
		c.printf("Account creation date:\t\t%s", timefmt.Date(info.Created))
	}
	if !info.LastAvailable.IsZero() {
		c.printf("\n* Last time user was available:\t%s (%s)", timefmt.Date(info.LastAvailable), timefmt.Ago(info.LastAvailable, info.Now))
	}
	if !info.StatusSince.IsZero() {
		c.printf("\n* User is %s for:\t\t%s", statusColor(info.Status), timefmt.SpanMinutes(info.StatusSince, info.Now))
	}
	if info.Game != "" {
		c.printf("\nUser is currently in-game:\t%s", cyan(info.Game))
	}
	if len(info.RecentGames) > 0 {
		c.printf("\nList of recently played games:")
		for i, g := range info.RecentGames {
			c.printf("%d %s", i+1, g)
		}
	}
	c.printf("%s", divider)
}

// Ack prints a signal acknowledgement followed by the resulting settings.
func (c *ConsoleSink) Ack(signal string, lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.printf("* Signal %s received", signal)
	for _, l := range lines {
		c.printf("* %s", l)
	}
	c.printf("%s", divider)
}

// Alive prints the periodic liveness line.
func (c *ConsoleSink) Alive(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.printf("%s", faint("Alive check, timestamp: "+timefmt.Stamp(at)))
	c.printf("%s", divider)
}
