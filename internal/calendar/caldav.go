package calendar

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/cinemacal/cinemacal/internal/log"
	"github.com/cinemacal/cinemacal/internal/screening"
)

// PropScreeningRef carries the back-reference on VEVENTs this program wrote.
const PropScreeningRef = "X-CINEMACAL-SCREENING-ID"

// maxOccurrences caps recurrence expansion per event.
const maxOccurrences = 500

// CalDAVBackend talks to a CalDAV server. Calendar ids are collection paths
// and event ids are object paths.
type CalDAVBackend struct {
	client *caldav.Client
	opts   Options

	mu      sync.Mutex
	homeSet string
	target  *Calendar
}

// NewCalDAVBackend connects with basic auth.
func NewCalDAVBackend(endpoint, username, password string, opts Options) (*CalDAVBackend, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	var c webdav.HTTPClient = httpClient
	if username != "" {
		c = webdav.HTTPClientWithBasicAuth(httpClient, username, password)
	}

	client, err := caldav.NewClient(c, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}
	return &CalDAVBackend{client: client, opts: opts.withDefaults()}, nil
}

func (b *CalDAVBackend) findHomeSet(ctx context.Context) (string, error) {
	b.mu.Lock()
	homeSet := b.homeSet
	b.mu.Unlock()
	if homeSet != "" {
		return homeSet, nil
	}

	principal, err := b.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", networkError("find principal", "", err)
	}
	homeSet, err = b.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", networkError("find home set", "", err)
	}

	b.mu.Lock()
	b.homeSet = homeSet
	b.mu.Unlock()
	return homeSet, nil
}

func (b *CalDAVBackend) ListCalendars(ctx context.Context) ([]Calendar, error) {
	homeSet, err := b.findHomeSet(ctx)
	if err != nil {
		return nil, err
	}
	cals, err := b.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, networkError("list calendars", "", err)
	}

	out := make([]Calendar, 0, len(cals))
	for _, cal := range cals {
		label := cal.Name
		if label == "" {
			label = path.Base(strings.TrimSuffix(cal.Path, "/"))
		}
		out = append(out, Calendar{ID: cal.Path, Label: label})
	}
	return out, nil
}

func (b *CalDAVBackend) TargetCalendar(ctx context.Context) (Calendar, error) {
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
	if target.ID == "primary" {
		// CalDAV has no primary alias; use the first collection.
		if len(calendars) == 0 {
			return Calendar{}, fmt.Errorf("no CalDAV calendars found")
		}
		target = calendars[0]
	}

	b.mu.Lock()
	b.target = &target
	b.mu.Unlock()
	return target, nil
}

func (b *CalDAVBackend) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: timeMin.UTC(),
				End:   timeMax.UTC(),
			}},
		},
	}

	objects, err := b.client.QueryCalendar(ctx, calendarID, query)
	if err != nil {
		return nil, networkError("list events", calendarID, err)
	}

	var out []Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		out = append(out, eventsFromICS(obj.Path, calendarID, obj.Data, b.opts.Location, timeMin, timeMax)...)
	}
	return out, nil
}

// eventsFromICS converts the VEVENTs of one calendar object, expanding
// recurrences inside [timeMin, timeMax).
func eventsFromICS(objectPath, calendarID string, cal *ical.Calendar, loc *time.Location, timeMin, timeMax time.Time) []Event {
	var out []Event
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		if comp.Props.Get(ical.PropRecurrenceID) != nil {
			continue
		}

		base := Event{
			ID:           objectPath,
			CalendarID:   calendarID,
			Summary:      textProp(comp, ical.PropSummary),
			Location:     textProp(comp, ical.PropLocation),
			ScreeningRef: textProp(comp, PropScreeningRef),
		}

		start, startOK, dateOnly := icalTime(comp.Props.Get(ical.PropDateTimeStart), loc)
		end, endOK, _ := icalTime(comp.Props.Get(ical.PropDateTimeEnd), loc)
		switch {
		case !startOK:
			if p := comp.Props.Get(ical.PropDateTimeStart); p != nil {
				base.Start = p.Value
			}
		case dateOnly:
			base.Start = FormatDate(start)
			if endOK {
				base.End = FormatDate(end)
			}
		default:
			base.Start = FormatDateTime(start)
			if endOK {
				base.End = FormatDateTime(end)
			}
		}

		rule := comp.Props.Get(ical.PropRecurrenceRule)
		if rule == nil || !startOK {
			out = append(out, base)
			continue
		}

		occurrences, err := expandRecurrence(comp, rule.Value, start, loc, timeMin, timeMax)
		if err != nil {
			log.Error("failed to parse RRULE", err, "path", objectPath, "rrule", rule.Value)
			out = append(out, base)
			continue
		}
		var length time.Duration
		if endOK {
			length = end.Sub(start)
		}
		for _, occ := range occurrences {
			ev := base
			ev.ID = objectPath + "#" + occ.UTC().Format("20060102T150405Z")
			if dateOnly {
				ev.Start = FormatDate(occ)
				if endOK {
					ev.End = FormatDate(occ.Add(length))
				}
			} else {
				ev.Start = FormatDateTime(occ)
				if endOK {
					ev.End = FormatDateTime(occ.Add(length))
				}
			}
			out = append(out, ev)
		}
	}
	return out
}

func expandRecurrence(comp *ical.Component, ruleText string, start time.Time, loc *time.Location, timeMin, timeMax time.Time) ([]time.Time, error) {
	r, err := rrule.StrToRRule(ruleText)
	if err != nil {
		return nil, err
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, exProp := range comp.Props[ical.PropExceptionDates] {
		if ex, err := exProp.DateTime(loc); err == nil {
			set.ExDate(ex.In(start.Location()))
		}
	}

	var out []time.Time
	for _, occ := range set.Between(timeMin.In(start.Location()), timeMax.In(start.Location()), true) {
		if !occ.Before(timeMax) {
			continue
		}
		out = append(out, occ.In(loc))
		if len(out) >= maxOccurrences {
			break
		}
	}
	return out, nil
}

func icalTime(prop *ical.Prop, loc *time.Location) (t time.Time, ok bool, dateOnly bool) {
	if prop == nil {
		return time.Time{}, false, false
	}
	dateOnly = prop.Params.Get(ical.ParamValue) == string(ical.ValueDate) || len(prop.Value) == len("20060102")
	t, err := prop.DateTime(loc)
	if err != nil {
		return time.Time{}, false, dateOnly
	}
	return t.In(loc), true, dateOnly
}

func textProp(comp *ical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	if text, err := prop.Text(); err == nil {
		return text
	}
	return prop.Value
}

func (b *CalDAVBackend) CreateEvent(ctx context.Context, s screening.Screening) (Event, error) {
	target, err := b.TargetCalendar(ctx)
	if err != nil {
		return Event{}, err
	}

	spec := SpecFor(s, b.opts.Location, b.opts.DefaultMinutes)
	uid := uuid.NewString()
	objectPath := strings.TrimSuffix(target.ID, "/") + "/" + uid + ".ics"

	if _, err := b.client.PutCalendarObject(ctx, objectPath, specToICS(spec, uid)); err != nil {
		return Event{}, networkError("create event", target.ID, err)
	}
	log.Debug("created caldav event", "path", objectPath, "screening", spec.ScreeningRef)

	return Event{
		ID:            objectPath,
		CalendarID:    target.ID,
		CalendarLabel: target.Label,
		Summary:       spec.Summary,
		Start:         FormatDateTime(spec.Start),
		End:           FormatDateTime(spec.End),
		Location:      spec.Location,
		ScreeningRef:  spec.ScreeningRef,
	}, nil
}

func specToICS(spec EventSpec, uid string) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//cinemacal//CalDAV//EN")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetText(ical.PropSummary, spec.Summary)
	if spec.Location != "" {
		vevent.Props.SetText(ical.PropLocation, spec.Location)
	}
	if spec.Description != "" {
		vevent.Props.SetText(ical.PropDescription, spec.Description)
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStart, spec.Start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, spec.End.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	vevent.Props.SetText(PropScreeningRef, spec.ScreeningRef)

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}

// DeleteEvent removes the object behind eventID. Recurrence occurrences
// delete the whole series.
func (b *CalDAVBackend) DeleteEvent(ctx context.Context, eventID, calendarID string) error {
	objectPath, _, _ := strings.Cut(eventID, "#")
	if err := b.client.RemoveAll(ctx, objectPath); err != nil {
		return networkError("delete event", calendarID, err)
	}
	return nil
}
