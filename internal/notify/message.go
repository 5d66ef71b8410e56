package notify

import (
	"fmt"
	"strings"
	"time"

	"tools.zach/dev/steamwatch/internal/presence"
	"tools.zach/dev/steamwatch/internal/timefmt"
)

// ///////////////////////////////////////////////
// Messages
// ///////////////////////////////////////////////

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// activityLabel returns the display name of an activity, falling back to
// its id when the API sent no name.
func activityLabel(name, id string) string {
	switch {
	case name != "":
		return name
	case id != "":
		return "app " + id
	default:
		return ""
	}
}

// StatusMessage renders a status transition.
//
// The subject reads "... is now X (after <span>, was Y: <range>)". When an
// online session ended, span and range cover the whole session instead of
// the last status.
func StatusMessage(acct Account, ev presence.StatusChanged) Message {
	name := acct.Display()
	lastRange := timefmt.Range(ev.Since, ev.Now, true)

	after := timefmt.SpanMinutes(ev.Since, ev.Now)
	wasSince := fmt.Sprintf(", was %s: %s", ev.From, lastRange)

	var body strings.Builder
	fmt.Fprintf(&body, "Steam user %s changed status from %s to %s\n\n", name, ev.From, ev.To)
	fmt.Fprintf(&body, "User was %s for %s (%s)", ev.From, timefmt.Span(ev.Since, ev.Now), lastRange)

	if ev.WentActive() && ev.MergedShortInterruption {
		fmt.Fprintf(&body, "\n\nShort offline interruption, session continues since %s", timefmt.Date(ev.SessionStart))
	}
	if s := ev.Session; s != nil {
		sessionRange := timefmt.Range(s.Start, ev.Now, true)
		after = timefmt.SpanMinutes(s.Start, ev.Now)
		wasSince = ", was available: " + sessionRange
		fmt.Fprintf(&body, "\n\nUser was available for %s (%s)", after, sessionRange)
		if s.ActivityCount > 0 {
			fmt.Fprintf(&body, "\n\nGames played: %d, total play time: %s", s.ActivityCount, timefmt.Duration(s.ActivityTotal))
		}
	}
	if in := ev.Inactivity; in != nil {
		fmt.Fprintf(&body, "\n\nEstimated last activity: %s (inactive for %s)", timefmt.Date(in.LastActiveAt), timefmt.Duration(in.Total))
		if in.ActivePortion > 0 {
			fmt.Fprintf(&body, "\nActive for %s before going idle", timefmt.Duration(in.ActivePortion))
		}
	}
	if ev.ActivityName != "" {
		fmt.Fprintf(&body, "\n\nUser is currently in-game: %s", ev.ActivityName)
	}
	fmt.Fprintf(&body, "\n\nTimestamp: %s", timefmt.Date(ev.Now))

	return Message{
		Subject: fmt.Sprintf("Steam user %s is now %s (after %s%s)", name, ev.To, after, wasSince),
		Body:    body.String(),
	}
}

// ActivityMessage renders an activity start, stop or switch.
func ActivityMessage(acct Account, ev presence.ActivityChanged) Message {
	name := acct.Display()
	oldName := activityLabel(ev.OldName, ev.OldID)
	newName := activityLabel(ev.NewName, ev.NewID)
	stamp := "\n\nTimestamp: " + timefmt.Date(ev.Now)

	var played, afterRange string
	if ev.Kind != presence.ActivityStarted {
		played = fmt.Sprintf("\n\nUser played game from %s", timefmt.RangeSep(ev.StartedAt, ev.Now, " to ", true))
		afterRange = fmt.Sprintf("(after %s: %s)", timefmt.SpanMinutes(ev.StartedAt, ev.Now), timefmt.Range(ev.StartedAt, ev.Now, true))
	}

	switch ev.Kind {
	case presence.ActivityStarted:
		line := fmt.Sprintf("Steam user %s now plays '%s'", name, newName)
		return Message{Subject: line, Body: line + stamp}
	case presence.ActivityStopped:
		return Message{
			Subject: fmt.Sprintf("Steam user %s stopped playing '%s' %s", name, oldName, afterRange),
			Body:    fmt.Sprintf("Steam user %s stopped playing '%s' after %s%s%s", name, oldName, timefmt.Span(ev.StartedAt, ev.Now), played, stamp),
		}
	default:
		return Message{
			Subject: fmt.Sprintf("Steam user %s changed game to '%s' %s", name, newName, afterRange),
			Body:    fmt.Sprintf("Steam user %s changed game from '%s' to '%s' after %s%s%s", name, oldName, newName, timefmt.Span(ev.StartedAt, ev.Now), played, stamp),
		}
	}
}

// FailureMessage renders a rejected-credential report.
func FailureMessage(acct Account, f Failure, at time.Time) Message {
	return Message{
		Subject: fmt.Sprintf("steamwatch: API key error! (user: %s)", acct.Display()),
		Body:    fmt.Sprintf("API key might not be valid anymore: %v\n\nTimestamp: %s", f.Err, timefmt.Date(at)),
	}
}
