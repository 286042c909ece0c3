package calendar

import (
	"strings"
	"time"
)

// Event is an event read from an external calendar. Start and End hold the
// raw wire values: an RFC3339 date-time for timed events or YYYY-MM-DD for
// date-only ones. End may be empty.
type Event struct {
	ID            string
	CalendarID    string
	CalendarLabel string
	Summary       string
	Start         string
	End           string
	Location      string

	// ScreeningRef is set only on events this program created.
	ScreeningRef string
}

// Calendar is a selectable external calendar.
type Calendar struct {
	ID      string
	Label   string
	Primary bool
}

// StartTime parses the start as a timed instant in loc.
// ok is false for date-only or malformed starts.
func (e Event) StartTime(loc *time.Location) (time.Time, bool) {
	return parseDateTime(e.Start, loc)
}

// EndTime parses the end. ok is false when the end is absent or not timed.
func (e Event) EndTime(loc *time.Location) (time.Time, bool) {
	return parseDateTime(e.End, loc)
}

// AllDay reports whether the event has no usable start-of-day offset.
// Unparseable starts count as all-day.
func (e Event) AllDay() bool {
	_, ok := parseDateTime(e.Start, time.UTC)
	return !ok
}

func parseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "T") {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t, true
}

// FormatDateTime is the inverse of StartTime for backends that produce
// time.Time values.
func FormatDateTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// FormatDate renders a date-only value.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
