package calendar

import (
	"context"
	"time"

	"github.com/cinemacal/cinemacal/internal/screening"
)

// DefaultTargetName is the calendar new screening events are written to
// when no calendar id is configured.
const DefaultTargetName = "Movie Screenings"

// ScreeningRefKey names the back-reference stored on created events.
const ScreeningRefKey = "cinemacal_screening_id"

// EventLister fetches the events of one calendar in [timeMin, timeMax).
type EventLister interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error)
}

// Backend is an external calendar service.
type Backend interface {
	EventLister

	// ListCalendars returns every calendar the account can read.
	ListCalendars(ctx context.Context) ([]Calendar, error)
	// TargetCalendar returns the calendar new events are written to.
	TargetCalendar(ctx context.Context) (Calendar, error)
	// CreateEvent writes s to the target calendar and returns the new event id.
	CreateEvent(ctx context.Context, s screening.Screening) (Event, error)
	DeleteEvent(ctx context.Context, eventID, calendarID string) error
}

// Options shared by the backends.
type Options struct {
	// CalendarID, when set, is the target calendar and bypasses lookup by name.
	CalendarID string
	TargetName string
	Location   *time.Location
	// DefaultMinutes is the runtime used for screenings without one.
	DefaultMinutes int
}

func (o Options) withDefaults() Options {
	if o.TargetName == "" {
		o.TargetName = DefaultTargetName
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.DefaultMinutes <= 0 {
		o.DefaultMinutes = screening.DefaultDurationMinutes
	}
	return o
}
