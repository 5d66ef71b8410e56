// Package timefmt renders durations, calendar spans and dates for console
// output, log lines and notification mails.
package timefmt

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ncruces/go-strftime"
)

// ///////////////////////////////////////////////
// Durations
// ///////////////////////////////////////////////

// unit is one step of a duration breakdown.
type unit struct {
	name string
	secs int64
}

// durationUnits approximate years and months by their mean lengths.
var durationUnits = []unit{
	{"years", 31556952},
	{"months", 2629746},
	{"weeks", 604800},
	{"days", 86400},
	{"hours", 3600},
	{"minutes", 60},
	{"seconds", 1},
}

// Duration renders d as its two most significant non-zero units,
// e.g. "1 hour, 5 minutes". Sub-second precision is dropped and anything
// under a second is "0 seconds".
func Duration(d time.Duration) string {
	return DurationN(d, 2)
}

// DurationN is [Duration] with an explicit number of units.
func DurationN(d time.Duration, granularity int) string {
	secs := int64(d / time.Second)
	if secs <= 0 {
		return "0 seconds"
	}
	var parts []string
	for _, u := range durationUnits {
		v := secs / u.secs
		if v == 0 {
			continue
		}
		secs -= v * u.secs
		parts = append(parts, plural(v, u.name))
	}
	return join(parts, granularity)
}

// ///////////////////////////////////////////////
// Calendar Spans
// ///////////////////////////////////////////////

// SpanOptions controls [SpanWith]. Each Hide flag only applies when the
// span is long enough for the next larger unit to be present.
type SpanOptions struct {
	HideWeeks   bool
	HideHours   bool // spans over a day
	HideMinutes bool // spans over an hour
	HideSeconds bool // spans over a minute
	// Granularity caps the number of units shown; 0 means 3.
	Granularity int
}

// Span renders the calendar distance between a and b (in either order)
// with up to three units, e.g. "1 month, 2 weeks, 3 days". Months and
// years follow the calendar, so Jan 31 to Feb 28 is one month.
func Span(a, b time.Time) string {
	return SpanWith(a, b, SpanOptions{})
}

// SpanMinutes is [Span] without seconds for spans over a minute. Used for
// "was online for ..." phrasing where seconds are noise.
func SpanMinutes(a, b time.Time) string {
	return SpanWith(a, b, SpanOptions{HideSeconds: true})
}

// SpanWith is [Span] with explicit options.
func SpanWith(a, b time.Time, opts SpanOptions) string {
	from, to := a.Truncate(time.Second), b.Truncate(time.Second)
	if from.After(to) {
		from, to = to, from
	}
	total := to.Sub(from)
	if total <= 0 {
		return "0 seconds"
	}

	years, months, rest := calendarMonths(from, to)
	days := int64(rest / (24 * time.Hour))
	rest -= time.Duration(days) * 24 * time.Hour
	hours := int64(rest / time.Hour)
	rest -= time.Duration(hours) * time.Hour
	minutes := int64(rest / time.Minute)
	rest -= time.Duration(minutes) * time.Minute
	seconds := int64(rest / time.Second)

	var weeks int64
	if !opts.HideWeeks {
		weeks = days / 7
		days %= 7
	}
	if opts.HideHours && total > 24*time.Hour {
		hours = 0
	}
	if opts.HideMinutes && total > time.Hour {
		minutes = 0
	}
	if opts.HideSeconds && total > time.Minute {
		seconds = 0
	}

	values := []int64{int64(years), int64(months), weeks, days, hours, minutes, seconds}
	var parts []string
	for i, v := range values {
		if v > 0 {
			parts = append(parts, plural(v, durationUnits[i].name))
		}
	}
	if len(parts) == 0 {
		return "0 seconds"
	}
	g := opts.Granularity
	if g <= 0 {
		g = 3
	}
	return join(parts, g)
}

// calendarMonths returns the whole years and months from from to to, and
// the remainder after adding them to from. to must not be before from.
func calendarMonths(from, to time.Time) (years, months int, rest time.Duration) {
	total := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	anchor := addMonths(from, total)
	for total > 0 && anchor.After(to) {
		total--
		anchor = addMonths(from, total)
	}
	return total / 12, total % 12, to.Sub(anchor)
}

// addMonths adds n months to t, clamping the day to the target month's
// length instead of overflowing into the next month.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(d, last)-1)
}

// ///////////////////////////////////////////////
// Dates
// ///////////////////////////////////////////////

// strftime layouts used across output.
const (
	dateLayout      = "%a %d %b %Y, %H:%M:%S" // Sun 21 Apr 2024, 15:08:45
	shortDateLayout = "%a %d %b %H:%M"        // Sun 21 Apr 15:08
	stampLayout     = "%a, %d %b %Y, %H:%M:%S"
	clockLayout     = "%H:%M"
	clockSecsLayout = "%H:%M:%S"
	dayKeyLayout    = "%Y%m%d"
	csvLayout       = "%Y-%m-%d %H:%M:%S"
)

// Date renders t like "Sun 21 Apr 2024, 15:08:45".
func Date(t time.Time) string { return strftime.Format(dateLayout, t) }

// ShortDate renders t like "Sun 21 Apr 15:08".
func ShortDate(t time.Time) string { return strftime.Format(shortDateLayout, t) }

// Stamp renders t like "Sun, 21 Apr 2024, 15:08:45" for console headers.
func Stamp(t time.Time) string { return strftime.Format(stampLayout, t) }

// CSV renders t for the CSV Date column, e.g. "2024-04-21 15:08:45".
func CSV(t time.Time) string { return strftime.Format(csvLayout, t) }

// Clock renders the time of day, optionally with seconds.
func Clock(t time.Time, seconds bool) string {
	if seconds {
		return strftime.Format(clockSecsLayout, t)
	}
	return strftime.Format(clockLayout, t)
}

// Range renders the interval a..b. When both fall on the same day the end
// is just a clock time: "Sun 21 Apr 2024, 14:09:00 - 14:15:30". The short
// form drops the year and seconds: "Sun 21 Apr 14:09 - 14:15".
func Range(a, b time.Time, short bool) string {
	return RangeSep(a, b, " - ", short)
}

// RangeSep is [Range] with a custom separator.
func RangeSep(a, b time.Time, sep string, short bool) string {
	sameDay := strftime.Format(dayKeyLayout, a) == strftime.Format(dayKeyLayout, b)
	switch {
	case sameDay && short:
		return ShortDate(a) + sep + Clock(b, false)
	case sameDay:
		return Date(a) + sep + Clock(b, true)
	case short:
		return ShortDate(a) + sep + ShortDate(b)
	default:
		return Date(a) + sep + Date(b)
	}
}

// Ago renders t relative to now, e.g. "3 hours ago". The zero time is
// "never".
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// plural renders "1 hour" or "2 hours" from a plural unit name.
func plural(v int64, name string) string {
	if v == 1 {
		name = strings.TrimSuffix(name, "s")
	}
	return strconv.FormatInt(v, 10) + " " + name
}

// join keeps at most n parts.
func join(parts []string, n int) string {
	if n > 0 && len(parts) > n {
		parts = parts[:n]
	}
	return strings.Join(parts, ", ")
}
