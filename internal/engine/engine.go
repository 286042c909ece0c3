// Package engine owns the state of a calendar session: screenings, cached
// external events, the screening/event links, the fetched window, the
// displayed week and stack ordering. The presentation layer drives it with
// typed commands and reads back a computed week layout.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cinemacal/cinemacal/internal/calendar"
	"github.com/cinemacal/cinemacal/internal/calsync"
	"github.com/cinemacal/cinemacal/internal/layout"
	"github.com/cinemacal/cinemacal/internal/log"
	"github.com/cinemacal/cinemacal/internal/prefs"
	"github.com/cinemacal/cinemacal/internal/screening"
	"github.com/cinemacal/cinemacal/internal/week"
)

var (
	ErrInFlight         = errors.New("request already in flight for screening")
	ErrNotLinked        = errors.New("screening has no calendar event")
	ErrUnknownScreening = errors.New("unknown screening")
	ErrUnknownGroup     = errors.New("unknown overlap group")
	ErrNoBackend        = errors.New("no calendar backend configured")
)

const DefaultWindowDays = 30

type Options struct {
	Location         *time.Location
	WindowDays       int
	FirstHour        int
	ScreeningMinutes int
	EventMinutes     int
	Now              func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.FirstHour <= 0 {
		o.FirstHour = week.DefaultFirstHour
	}
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.ScreeningMinutes <= 0 {
		o.ScreeningMinutes = screening.DefaultDurationMinutes
	}
	if o.EventMinutes <= 0 {
		o.EventMinutes = 60
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// CalendarChoice is a calendar with its selection state.
type CalendarChoice struct {
	calendar.Calendar
	Selected bool
	Target   bool
}

type Engine struct {
	backend calendar.Backend
	store   *prefs.Store
	opts    Options

	mu         sync.Mutex
	screenings []screening.Screening
	byID       map[string]screening.Screening
	events     []calendar.Event
	calendars  []calendar.Calendar
	target     calendar.Calendar
	prefs      prefs.Prefs
	links      *calsync.SyncMap
	cache      calsync.RangeCache
	nav        *week.Navigator
	groups     layout.GroupState
	pending    map[string]bool
	last       layout.WeekLayout
}

// New creates an engine. backend and store may be nil, in which case only
// screenings are shown and preferences are kept in memory.
func New(backend calendar.Backend, store *prefs.Store, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		backend: backend,
		store:   store,
		opts:    opts,
		byID:    make(map[string]screening.Screening),
		links:   calsync.NewSyncMap(),
		nav:     week.NewNavigator(opts.Now(), opts.Location, opts.FirstHour),
		groups:  make(layout.GroupState),
		pending: make(map[string]bool),
	}
}

func (e *Engine) HasBackend() bool {
	return e.backend != nil
}

func (e *Engine) Location() *time.Location {
	return e.opts.Location
}

// SetScreenings replaces the active result set.
func (e *Engine) SetScreenings(list []screening.Screening) {
	sorted := make([]screening.Screening, len(list))
	copy(sorted, list)
	screening.SortByStart(sorted)

	byID := make(map[string]screening.Screening, len(sorted))
	for _, s := range sorted {
		byID[s.ID()] = s
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.screenings = sorted
	e.byID = byID
}

func (e *Engine) Screenings() []screening.Screening {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]screening.Screening(nil), e.screenings...)
}

func (e *Engine) Screening(id string) (screening.Screening, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.byID[id]
	return s, ok
}

// Events returns the cached external events.
func (e *Engine) Events() []calendar.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]calendar.Event(nil), e.events...)
}

// LoadCalendars fetches the calendar list and the target calendar, and
// applies the one-time "all calendars selected" upgrade to stored prefs.
func (e *Engine) LoadCalendars(ctx context.Context) error {
	if e.backend == nil {
		return ErrNoBackend
	}

	calendars, err := e.backend.ListCalendars(ctx)
	if err != nil {
		return err
	}
	target, err := e.backend.TargetCalendar(ctx)
	if err != nil {
		return err
	}

	p, err := e.loadPrefs()
	if err != nil {
		return err
	}
	ids := make([]string, len(calendars))
	for i, c := range calendars {
		ids[i] = c.ID
	}
	p, upgraded := prefs.Upgrade(p, ids)
	if upgraded {
		log.Info("selecting all calendars", "count", len(ids))
		if err := e.savePrefs(p); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.calendars = calendars
	e.target = target
	e.prefs = p
	return nil
}

func (e *Engine) loadPrefs() (prefs.Prefs, error) {
	if e.store == nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.prefs, nil
	}
	p, err := e.store.Load()
	if err != nil {
		return prefs.Prefs{}, fmt.Errorf("load prefs: %w", err)
	}
	return p, nil
}

func (e *Engine) savePrefs(p prefs.Prefs) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.Save(p); err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	return nil
}

// Calendars lists known calendars with their selection state.
func (e *Engine) Calendars() []CalendarChoice {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]CalendarChoice, len(e.calendars))
	for i, c := range e.calendars {
		out[i] = CalendarChoice{
			Calendar: c,
			Selected: e.prefs.Selected(c.ID),
			Target:   c.ID == e.target.ID,
		}
	}
	return out
}

// Target returns the calendar new events are written to.
func (e *Engine) Target() calendar.Calendar {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

func (e *Engine) Selection() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.prefs.SelectedCalendarIDs...)
}

// ToggleCalendar flips a calendar's selection and persists it. The cached
// window no longer matches the selection, so the next refresh refetches.
func (e *Engine) ToggleCalendar(id string) error {
	e.mu.Lock()
	p := e.prefs.Toggle(id)
	if p.DefaultsVersion < prefs.CurrentDefaultsVersion {
		p.DefaultsVersion = prefs.CurrentDefaultsVersion
	}
	e.prefs = p
	e.mu.Unlock()

	log.Debug("toggled calendar", "id", id, "selected", p.Selected(id))
	return e.savePrefs(p)
}

// Window returns the rolling fetch window: today 00:00 plus WindowDays.
func (e *Engine) Window() (time.Time, time.Time) {
	now := e.opts.Now().In(e.opts.Location)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.opts.Location)
	return start, start.AddDate(0, 0, e.opts.WindowDays)
}

// Week returns the displayed week bounds.
func (e *Engine) Week() (time.Time, time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nav.Bounds()
}

// Refresh fetches external events when the displayed week is not covered
// by the cached window for the current selection, or always when force is
// set. The fetch is always the rolling window anchored at today. Results
// are applied all at once or not at all. fetched reports whether a fetch
// happened.
func (e *Engine) Refresh(ctx context.Context, force bool) (fetched bool, err error) {
	if e.backend == nil {
		return false, nil
	}

	e.mu.Lock()
	ids := append([]string(nil), e.prefs.SelectedCalendarIDs...)
	calendars := append([]calendar.Calendar(nil), e.calendars...)
	weekStart, weekEnd := e.nav.Bounds()
	timeMin, timeMax := e.Window()
	// Days of the current week before today are never fetched.
	from := weekStart
	if from.Before(timeMin) && weekEnd.After(timeMin) {
		from = timeMin
	}
	covered := e.cache.IsCovered(from, weekEnd, ids)
	e.mu.Unlock()

	if covered && !force {
		log.Debug("week covered by cache", "week", weekStart.Format("2006-01-02"))
		return false, nil
	}

	if weekEnd.Before(timeMin) || weekStart.After(timeMax) {
		log.Info("displayed week outside rolling window",
			"week", weekStart.Format("2006-01-02"),
			"window_start", timeMin.Format("2006-01-02"),
			"window_end", timeMax.Format("2006-01-02"))
	}

	events, err := calendar.MergeCalendars(ctx, e.backend, calendars, ids, timeMin, timeMax)
	if err != nil {
		log.Error("event fetch failed", err, "calendars", len(ids))
		return false, err
	}

	e.mu.Lock()
	e.events = events
	e.links.Rebuild(events)
	e.cache.Refresh(timeMin, timeMax, ids)
	linked := e.links.Len()
	e.mu.Unlock()

	log.Info("fetched events", "count", len(events), "linked", linked)
	return true, nil
}

// InvalidateCache forces the next Refresh to fetch.
func (e *Engine) InvalidateCache() {
	e.cache.Invalidate()
}

func (e *Engine) NextWeek(ctx context.Context) error {
	e.mu.Lock()
	e.nav.Next()
	e.mu.Unlock()
	_, err := e.Refresh(ctx, false)
	return err
}

func (e *Engine) PreviousWeek(ctx context.Context) error {
	e.mu.Lock()
	e.nav.Previous()
	e.mu.Unlock()
	_, err := e.Refresh(ctx, false)
	return err
}

// GotoWeek displays the week containing date.
func (e *Engine) GotoWeek(ctx context.Context, date time.Time) error {
	e.mu.Lock()
	e.nav.Goto(date)
	e.mu.Unlock()
	_, err := e.Refresh(ctx, false)
	return err
}

// InFlight reports whether an add or remove is pending for the screening.
func (e *Engine) InFlight(screeningID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending[screeningID]
}

// EventFor returns the event linked to a screening.
func (e *Engine) EventFor(screeningID string) (string, bool) {
	return e.links.EventFor(screeningID)
}

func (e *Engine) ScreeningFor(eventID string) (string, bool) {
	return e.links.ScreeningFor(eventID)
}

func (e *Engine) begin(screeningID string) (screening.Screening, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.byID[screeningID]
	if !ok {
		return s, ErrUnknownScreening
	}
	if e.pending[screeningID] {
		return s, ErrInFlight
	}
	e.pending[screeningID] = true
	return s, nil
}

func (e *Engine) finish(screeningID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, screeningID)
}

// AddScreening creates a calendar event for the screening and links it.
// Re-adding a linked screening is not prevented here.
func (e *Engine) AddScreening(ctx context.Context, screeningID string) (calendar.Event, error) {
	if e.backend == nil {
		return calendar.Event{}, ErrNoBackend
	}
	s, err := e.begin(screeningID)
	if err != nil {
		return calendar.Event{}, err
	}
	defer e.finish(screeningID)

	ev, err := e.backend.CreateEvent(ctx, s)
	if err != nil {
		log.Error("add screening failed", err, "screening", screeningID, "title", s.Title)
		return calendar.Event{}, err
	}

	e.RecordLink(screeningID, ev.ID)
	log.Info("added screening", "screening", screeningID, "event", ev.ID, "title", s.Title)
	return ev, nil
}

// RemoveScreening deletes the linked event and unlinks it.
func (e *Engine) RemoveScreening(ctx context.Context, screeningID string) error {
	if e.backend == nil {
		return ErrNoBackend
	}
	eventID, ok := e.links.EventFor(screeningID)
	if !ok {
		return ErrNotLinked
	}
	if _, err := e.begin(screeningID); err != nil {
		return err
	}
	defer e.finish(screeningID)

	calendarID := e.calendarOf(eventID)
	if err := e.backend.DeleteEvent(ctx, eventID, calendarID); err != nil {
		log.Error("remove screening failed", err, "screening", screeningID, "event", eventID)
		return err
	}

	e.RecordUnlink(screeningID)
	e.mu.Lock()
	kept := e.events[:0:0]
	for _, ev := range e.events {
		if ev.ID != eventID {
			kept = append(kept, ev)
		}
	}
	e.events = kept
	e.mu.Unlock()

	log.Info("removed screening", "screening", screeningID, "event", eventID)
	return nil
}

func (e *Engine) calendarOf(eventID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.events {
		if ev.ID == eventID {
			return ev.CalendarID
		}
	}
	return e.target.ID
}

// RecordLink patches the link table after a successful create.
func (e *Engine) RecordLink(screeningID, eventID string) {
	e.links.Link(screeningID, eventID)
}

// RecordUnlink patches the link table after a successful delete.
func (e *Engine) RecordUnlink(screeningID string) {
	e.links.Unlink(screeningID)
}

// Promote brings member k of the group to the top. The group must have
// been part of the last computed layout; promotions made since then are
// taken into account.
func (e *Engine) Promote(groupKey string, member int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.last.Stack(groupKey)
	if !ok {
		return ErrUnknownGroup
	}
	if member < 0 || member >= len(s.Members) {
		return fmt.Errorf("member %d out of range for group of %d", member, len(s.Members))
	}
	// Earlier promotions since the last layout decide the current primary.
	if st, ok := e.groups[groupKey]; ok && st.Primary >= 0 && st.Primary < len(s.Members) {
		s.Primary = st.Primary
	}
	e.groups = layout.Promote(e.groups, s, member)
	log.Debug("promoted", "group", groupKey, "member", s.Members[member].Identity())
	return nil
}

// Layout computes the displayed week and carries group state forward.
func (e *Engine) Layout() layout.WeekLayout {
	e.mu.Lock()
	defer e.mu.Unlock()

	in := layout.Input{
		Screenings:       e.screenings,
		Events:           e.events,
		WeekStart:        e.nav.Start(),
		Location:         e.opts.Location,
		Links:            e.links,
		ScreeningMinutes: e.opts.ScreeningMinutes,
		EventMinutes:     e.opts.EventMinutes,
	}
	out, groups := layout.ComputeWeekLayout(in, e.groups)
	out.FirstHour = e.nav.FirstHour(out)
	e.groups = groups
	e.last = out
	return out
}
