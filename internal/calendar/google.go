package calendar

import (
	"context"
	"strings"
	"sync"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/cinemacal/cinemacal/internal/log"
	"github.com/cinemacal/cinemacal/internal/screening"
)

// GoogleBackend talks to the Google Calendar API.
type GoogleBackend struct {
	svc  *gcal.Service
	opts Options

	mu     sync.Mutex
	target *Calendar
}

// NewGoogleBackend builds a backend from a credentials JSON file.
func NewGoogleBackend(ctx context.Context, credentialsFile string, opts Options) (*GoogleBackend, error) {
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, err
	}
	return NewGoogleBackendWithService(svc, opts), nil
}

// NewGoogleBackendWithService wraps an existing service.
func NewGoogleBackendWithService(svc *gcal.Service, opts Options) *GoogleBackend {
	return &GoogleBackend{svc: svc, opts: opts.withDefaults()}
}

func (b *GoogleBackend) ListCalendars(ctx context.Context) ([]Calendar, error) {
	var out []Calendar
	err := b.svc.CalendarList.List().Context(ctx).Pages(ctx, func(page *gcal.CalendarList) error {
		for _, item := range page.Items {
			out = append(out, Calendar{
				ID:      item.Id,
				Label:   calendarLabel(item),
				Primary: item.Primary,
			})
		}
		return nil
	})
	if err != nil {
		return nil, networkError("list calendars", "", err)
	}
	return out, nil
}

func calendarLabel(item *gcal.CalendarListEntry) string {
	switch {
	case item.SummaryOverride != "":
		return item.SummaryOverride
	case item.Summary != "":
		return item.Summary
	default:
		return item.Id
	}
}

// TargetCalendar resolves the configured id, else the calendar whose label
// matches the target name, else the primary calendar.
func (b *GoogleBackend) TargetCalendar(ctx context.Context) (Calendar, error) {
	b.mu.Lock()
	if b.target != nil {
		t := *b.target
		b.mu.Unlock()
		return t, nil
	}
	b.mu.Unlock()

	calendars, err := b.ListCalendars(ctx)
	if err != nil {
		return Calendar{}, err
	}
	target := ResolveTarget(calendars, b.opts.CalendarID, b.opts.TargetName)

	b.mu.Lock()
	b.target = &target
	b.mu.Unlock()
	return target, nil
}

// ResolveTarget picks the calendar new events are written to.
func ResolveTarget(calendars []Calendar, configuredID, name string) Calendar {
	if configuredID != "" {
		for _, c := range calendars {
			if c.ID == configuredID {
				return c
			}
		}
		return Calendar{ID: configuredID, Label: configuredID}
	}
	for _, c := range calendars {
		if strings.EqualFold(strings.TrimSpace(c.Label), strings.TrimSpace(name)) {
			return c
		}
	}
	for _, c := range calendars {
		if c.Primary {
			return c
		}
	}
	return Calendar{ID: "primary", Label: "primary"}
}

func (b *GoogleBackend) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	var out []Event
	call := b.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			out = append(out, fromGoogleEvent(item, calendarID))
		}
		return nil
	})
	if err != nil {
		return nil, networkError("list events", calendarID, err)
	}
	return out, nil
}

func fromGoogleEvent(item *gcal.Event, calendarID string) Event {
	ev := Event{
		ID:         item.Id,
		CalendarID: calendarID,
		Summary:    item.Summary,
		Location:   item.Location,
	}
	if item.Start != nil {
		ev.Start = item.Start.DateTime
		if ev.Start == "" {
			ev.Start = item.Start.Date
		}
	}
	if item.End != nil {
		ev.End = item.End.DateTime
		if ev.End == "" {
			ev.End = item.End.Date
		}
	}
	if item.ExtendedProperties != nil {
		ev.ScreeningRef = item.ExtendedProperties.Private[ScreeningRefKey]
	}
	return ev
}

func (b *GoogleBackend) CreateEvent(ctx context.Context, s screening.Screening) (Event, error) {
	target, err := b.TargetCalendar(ctx)
	if err != nil {
		return Event{}, err
	}

	spec := SpecFor(s, b.opts.Location, b.opts.DefaultMinutes)
	created, err := b.svc.Events.Insert(target.ID, toGoogleEvent(spec, b.opts.Location)).Context(ctx).Do()
	if err != nil {
		return Event{}, networkError("create event", target.ID, err)
	}
	log.Debug("created google event", "id", created.Id, "screening", spec.ScreeningRef)

	ev := fromGoogleEvent(created, target.ID)
	ev.CalendarLabel = target.Label
	return ev, nil
}

func toGoogleEvent(spec EventSpec, loc *time.Location) *gcal.Event {
	tz := loc.String()
	if loc == time.Local {
		tz = ""
	}
	return &gcal.Event{
		Summary:     spec.Summary,
		Location:    spec.Location,
		Description: spec.Description,
		Start: &gcal.EventDateTime{
			DateTime: FormatDateTime(spec.Start),
			TimeZone: tz,
		},
		End: &gcal.EventDateTime{
			DateTime: FormatDateTime(spec.End),
			TimeZone: tz,
		},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{ScreeningRefKey: spec.ScreeningRef},
		},
	}
}

func (b *GoogleBackend) DeleteEvent(ctx context.Context, eventID, calendarID string) error {
	if err := b.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return networkError("delete event", calendarID, err)
	}
	return nil
}
