package layout

import (
	"time"

	"github.com/cinemacal/cinemacal/internal/calendar"
	"github.com/cinemacal/cinemacal/internal/screening"
)

// MinSpanMinutes is the shortest span a block is drawn with.
const MinSpanMinutes = 15

// Kind distinguishes the two sources of blocks.
type Kind int

const (
	KindScreening Kind = iota
	KindExternal
)

func (k Kind) String() string {
	if k == KindExternal {
		return "external"
	}
	return "screening"
}

// Block is a time-boxed render unit on one day. Minutes are counted from
// local midnight and keep fractional seconds.
type Block struct {
	Kind         Kind
	DayKey       string
	StartMinutes float64
	EndMinutes   float64
	Title        string
	Subtitle     string

	ScreeningID   string
	EventID       string
	CalendarID    string
	CalendarLabel string
	OnCalendar    bool

	Column      int
	ColumnCount int
}

// Identity is unique per source entity.
func (b Block) Identity() string {
	if b.Kind == KindExternal {
		return "external:" + b.EventID
	}
	return "screening:" + b.ScreeningID
}

// Overlaps uses open intervals: abutting blocks do not collide.
func (b Block) Overlaps(o Block) bool {
	return o.EndMinutes > b.StartMinutes && o.StartMinutes < b.EndMinutes
}

// Links answers whether a screening already has a calendar event.
type Links interface {
	EventFor(screeningID string) (string, bool)
}

// FromScreening converts a screening. defaultMinutes applies when the
// runtime is unknown.
func FromScreening(s screening.Screening, defaultMinutes int, links Links) Block {
	start := minutesOf(s.Clock.Hour, s.Clock.Minute, s.Clock.Second)
	b := Block{
		Kind:         KindScreening,
		DayKey:       s.DayKey(),
		StartMinutes: start,
		EndMinutes:   start + float64(s.DurationMinutes(defaultMinutes)),
		Title:        s.Title,
		Subtitle:     s.Venue + s.FormatTags(),
		ScreeningID:  s.ID(),
	}
	if links != nil {
		b.EventID, b.OnCalendar = links.EventFor(b.ScreeningID)
	}
	return b.normalized()
}

// FromExternalEvent converts an external event. ok is false for all-day
// and malformed events, which have no place on the timed grid.
func FromExternalEvent(e calendar.Event, loc *time.Location, defaultMinutes int) (Block, bool) {
	start, ok := e.StartTime(loc)
	if !ok {
		return Block{}, false
	}
	startMinutes := minutesOf(start.Hour(), start.Minute(), start.Second())

	endMinutes := startMinutes + float64(defaultMinutes)
	if end, ok := e.EndTime(loc); ok {
		endMinutes = startMinutes + end.Sub(start).Minutes()
	}

	b := Block{
		Kind:          KindExternal,
		DayKey:        start.Format("2006-01-02"),
		StartMinutes:  startMinutes,
		EndMinutes:    endMinutes,
		Title:         e.Summary,
		Subtitle:      e.CalendarLabel,
		EventID:       e.ID,
		CalendarID:    e.CalendarID,
		CalendarLabel: e.CalendarLabel,
	}
	return b.normalized(), true
}

func (b Block) normalized() Block {
	if b.EndMinutes-b.StartMinutes < MinSpanMinutes {
		b.EndMinutes = b.StartMinutes + MinSpanMinutes
	}
	b.Column = 0
	b.ColumnCount = 1
	return b
}

func minutesOf(h, m, s int) float64 {
	return float64(h*60+m) + float64(s)/60
}
