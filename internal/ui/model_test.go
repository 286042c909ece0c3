package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cinemacal/cinemacal/internal/calendar"
	"github.com/cinemacal/cinemacal/internal/config"
	"github.com/cinemacal/cinemacal/internal/engine"
	"github.com/cinemacal/cinemacal/internal/layout"
	"github.com/cinemacal/cinemacal/internal/screening"
)

// Sunday 2025-03-09 10:00 UTC.
var testNow = time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)

type stubBackend struct {
	mu        sync.Mutex
	calendars []calendar.Calendar
	events    []calendar.Event
	createErr error
	created   []string
	deleted   []string
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		calendars: []calendar.Calendar{
			{ID: "movies", Label: "Movie Screenings"},
			{ID: "home", Label: "Home"},
		},
	}
}

func (b *stubBackend) ListCalendars(context.Context) ([]calendar.Calendar, error) {
	return b.calendars, nil
}

func (b *stubBackend) TargetCalendar(context.Context) (calendar.Calendar, error) {
	return b.calendars[0], nil
}

func (b *stubBackend) ListEvents(_ context.Context, id string, _, _ time.Time) ([]calendar.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []calendar.Event
	for _, e := range b.events {
		if e.CalendarID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (b *stubBackend) CreateEvent(_ context.Context, s screening.Screening) (calendar.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return calendar.Event{}, &calendar.NetworkError{Op: "create event", CalendarID: "movies", Err: b.createErr}
	}
	b.created = append(b.created, s.ID())
	return calendar.Event{ID: "ev-" + s.ID(), CalendarID: "movies", ScreeningRef: s.ID()}, nil
}

func (b *stubBackend) DeleteEvent(_ context.Context, eventID, calendarID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, calendarID+"/"+eventID)
	return nil
}

func show(title string, day, hour, minute, runtime int) screening.Screening {
	return screening.Screening{
		Title:          title,
		Venue:          "The Brattle",
		Date:           time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		Clock:          screening.Clock{Hour: hour, Minute: minute},
		RuntimeMinutes: &runtime,
	}
}

func newTestModel(t *testing.T, backend calendar.Backend, list ...screening.Screening) *Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Location = time.UTC
	eng := engine.New(backend, nil, engine.Options{
		Location:   time.UTC,
		WindowDays: 14,
		Now:        func() time.Time { return testNow },
	})
	eng.SetScreenings(list)

	m := NewModel(cfg, eng)
	m.now = func() time.Time { return testNow }
	m.width = 140
	m.height = 40
	m.relayout()
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m *Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	return cmd
}

// overlapping is the three-way clique from Monday 10:00 to 13:00.
func overlapping() []screening.Screening {
	return []screening.Screening{
		show("Alphaville", 10, 10, 0, 120),
		show("Brazil", 10, 10, 30, 60),
		show("Chinatown", 10, 11, 0, 120),
	}
}

func TestViewBeforeWindowSize(t *testing.T) {
	m := newTestModel(t, nil)
	m.width, m.height = 0, 0
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

func TestViewRendersBlocks(t *testing.T) {
	m := newTestModel(t, nil, show("Vertigo", 10, 19, 0, 128), show("Ran", 12, 14, 0, 162))

	view := m.View()
	for _, want := range []string{"Vertigo", "Ran", "Mon 3/10", "08:00"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "No screenings") {
		t.Error("placeholder shown for a populated week")
	}
}

func TestViewEmptyPlaceholder(t *testing.T) {
	m := newTestModel(t, nil)
	if !strings.Contains(m.View(), "No screenings loaded") {
		t.Error("empty state placeholder missing")
	}

	m = newTestModel(t, nil, show("Next Week", 20, 19, 0, 90))
	if !strings.Contains(m.View(), "No screenings or events this week") {
		t.Error("empty week placeholder missing")
	}
}

func TestFocusCycling(t *testing.T) {
	m := newTestModel(t, nil,
		show("Late", 11, 21, 0, 90),
		show("Early", 10, 13, 0, 90),
		show("Middle", 10, 18, 0, 90),
	)

	var titles []string
	for i := 0; i < 4; i++ {
		press(t, m, tea.KeyMsg{Type: tea.KeyTab})
		b, ok := m.focusedBlock()
		if !ok {
			t.Fatalf("no focus after %d presses", i+1)
		}
		titles = append(titles, b.Title)
	}
	want := []string{"Early", "Middle", "Late", "Early"}
	if strings.Join(titles, ",") != strings.Join(want, ",") {
		t.Errorf("focus order = %v, want %v", titles, want)
	}

	press(t, m, runes("h"))
	if b, _ := m.focusedBlock(); b.Title != "Late" {
		t.Errorf("focus_prev landed on %q, want Late", b.Title)
	}
}

func TestKeyboardPromotion(t *testing.T) {
	m := newTestModel(t, nil, overlapping()...)

	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	el, ok := m.focused()
	if !ok || !el.isStack {
		t.Fatal("expected the overlap stack to take focus")
	}
	if m.focusMember != 0 {
		t.Fatalf("member cursor = %d, want primary 0", m.focusMember)
	}

	press(t, m, runes("j"))
	press(t, m, runes("j"))
	if m.focusMember != 2 {
		t.Fatalf("member cursor = %d, want 2", m.focusMember)
	}
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	s := m.layout.Days[1].Stacks[0]
	if s.Primary != 2 || s.Back != 0 {
		t.Errorf("after promote: primary=%d back=%d, want 2 and 0", s.Primary, s.Back)
	}
	if s.Order[len(s.Order)-1] != 2 || s.Order[0] != 0 {
		t.Errorf("render order = %v, want back first and primary last", s.Order)
	}

	// The pin lasts for one render.
	m.relayout()
	s = m.layout.Days[1].Stacks[0]
	if s.Primary != 2 || s.Back != -1 {
		t.Errorf("second render: primary=%d back=%d, want 2 and -1", s.Primary, s.Back)
	}
}

func TestPromoteCurrentPrimaryIsNoop(t *testing.T) {
	m := newTestModel(t, nil, overlapping()...)
	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	key := m.focusKey

	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	s := m.layout.Days[1].Stacks[0]
	if s.Primary != 0 || s.Back != -1 {
		t.Errorf("primary=%d back=%d, want unchanged 0 and -1", s.Primary, s.Back)
	}
	if m.paint.Rank(key) == 0 {
		t.Error("activating the top member should raise the stack")
	}
}

func findTarget(targets []layout.Target, match func(layout.Target) bool) (layout.Target, bool) {
	for _, tg := range targets {
		if match(tg) {
			return tg, true
		}
	}
	return layout.Target{}, false
}

func click(tg layout.Target) tea.MouseMsg {
	return tea.MouseMsg{
		X:      tg.Box.X,
		Y:      tg.Box.Y,
		Button: tea.MouseButtonLeft,
		Action: tea.MouseActionPress,
	}
}

func TestClickPromotesBuriedMember(t *testing.T) {
	m := newTestModel(t, nil, overlapping()...)

	_, targets := m.buildScene()
	buried, ok := findTarget(targets, func(tg layout.Target) bool {
		return tg.StackKey != "" && tg.Member == 1
	})
	if !ok {
		t.Fatal("no strip for member 1")
	}
	if buried.Topmost {
		t.Fatal("member 1 should not start on top")
	}

	press(t, m, click(buried))
	s := m.layout.Days[1].Stacks[0]
	if s.Primary != 1 || s.Back != 0 {
		t.Errorf("primary=%d back=%d, want 1 and 0", s.Primary, s.Back)
	}
	if b, _ := m.focusedBlock(); b.Title != "Brazil" {
		t.Errorf("focus = %q, want Brazil", b.Title)
	}
}

func TestClickTopmostRaises(t *testing.T) {
	m := newTestModel(t, nil, overlapping()...)

	_, targets := m.buildScene()
	top, ok := findTarget(targets, func(tg layout.Target) bool { return tg.Topmost && tg.StackKey != "" })
	if !ok {
		t.Fatal("no topmost strip")
	}
	press(t, m, click(top))

	s := m.layout.Days[1].Stacks[0]
	if s.Primary != 0 {
		t.Errorf("primary = %d, want unchanged 0", s.Primary)
	}
	if m.paint.Rank(top.StackKey) == 0 {
		t.Error("stack was not raised")
	}
}

func TestClickStandaloneRaises(t *testing.T) {
	m := newTestModel(t, nil, show("Solo", 12, 15, 0, 90))

	_, targets := m.buildScene()
	if len(targets) != 1 {
		t.Fatalf("targets = %d, want 1", len(targets))
	}
	press(t, m, click(targets[0]))
	if m.paint.Rank(targets[0].Identity) == 0 {
		t.Error("standalone block was not raised")
	}
	if b, _ := m.focusedBlock(); b.Title != "Solo" {
		t.Errorf("focus = %q, want Solo", b.Title)
	}

	// A click on empty grid does nothing.
	if cmd := press(t, m, tea.MouseMsg{X: 0, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress}); cmd != nil {
		t.Error("click on the gutter returned a command")
	}
}

func TestAddAndRemoveScreening(t *testing.T) {
	backend := newStubBackend()
	m := newTestModel(t, backend, show("Stalker", 11, 19, 0, 161))
	if err := m.engine.LoadCalendars(context.Background()); err != nil {
		t.Fatal(err)
	}
	press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	cmd := press(t, m, runes("a"))
	if cmd == nil {
		t.Fatal("add returned no command")
	}
	b, _ := m.focusedBlock()
	if !m.pending[b.ScreeningID] {
		t.Error("screening not marked pending while the add is in flight")
	}

	// Second trigger is disabled until the first resolves.
	press(t, m, runes("a"))
	if !strings.HasPrefix(m.message, "Still saving") {
		t.Errorf("message = %q, want Still saving", m.message)
	}

	press(t, m, cmd())
	b, _ = m.focusedBlock()
	if !b.OnCalendar || m.pending[b.ScreeningID] {
		t.Errorf("after add: on calendar=%v pending=%v", b.OnCalendar, m.pending[b.ScreeningID])
	}
	if m.message != "Added Stalker" {
		t.Errorf("message = %q", m.message)
	}

	cmd = press(t, m, runes("d"))
	if cmd == nil {
		t.Fatal("remove returned no command")
	}
	press(t, m, cmd())
	b, _ = m.focusedBlock()
	if b.OnCalendar {
		t.Error("screening still on calendar after remove")
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != "movies/ev-"+b.ScreeningID {
		t.Errorf("deleted = %v", backend.deleted)
	}
}

func TestAddFailureIsReported(t *testing.T) {
	backend := newStubBackend()
	backend.createErr = errors.New("connection reset")
	m := newTestModel(t, backend, show("Stalker", 11, 19, 0, 161), show("Solaris", 12, 19, 0, 167))
	press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	cmd := press(t, m, runes("a"))
	press(t, m, cmd())
	if !strings.Contains(m.message, "Adding Stalker failed") || !strings.Contains(m.message, "connection reset") {
		t.Errorf("message = %q", m.message)
	}
	b, _ := m.focusedBlock()
	if b.OnCalendar || m.pending[b.ScreeningID] {
		t.Error("failed add left the screening linked or pending")
	}

	// Other screenings are unaffected.
	backend.createErr = nil
	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	cmd = press(t, m, runes("a"))
	press(t, m, cmd())
	if b, _ := m.focusedBlock(); b.Title != "Solaris" || !b.OnCalendar {
		t.Errorf("second add: %q on calendar=%v", b.Title, b.OnCalendar)
	}
}

func TestRemoveUnlinkedScreening(t *testing.T) {
	m := newTestModel(t, newStubBackend(), show("Stalker", 11, 19, 0, 161))
	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	press(t, m, runes("d"))
	if m.message != "Stalker is not on the calendar" {
		t.Errorf("message = %q", m.message)
	}
}

func TestAddWithoutBackend(t *testing.T) {
	m := newTestModel(t, nil, show("Stalker", 11, 19, 0, 161))
	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	press(t, m, runes("a"))
	if m.message != "No calendar backend configured" {
		t.Errorf("message = %q", m.message)
	}
}

func TestWeekNavigation(t *testing.T) {
	m := newTestModel(t, nil, show("Stalker", 11, 19, 0, 161))

	cmd := press(t, m, runes("n"))
	press(t, m, cmd())
	if want := time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC); !m.layout.WeekStart.Equal(want) {
		t.Errorf("week start = %v, want %v", m.layout.WeekStart, want)
	}

	cmd = press(t, m, runes("p"))
	press(t, m, cmd())
	cmd = press(t, m, runes("p"))
	press(t, m, cmd())
	if want := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC); !m.layout.WeekStart.Equal(want) {
		t.Errorf("week start = %v, want %v", m.layout.WeekStart, want)
	}

	cmd = press(t, m, runes("t"))
	press(t, m, cmd())
	if want := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC); !m.layout.WeekStart.Equal(want) {
		t.Errorf("week start = %v, want %v", m.layout.WeekStart, want)
	}
}

func TestCalendarPicker(t *testing.T) {
	backend := newStubBackend()
	m := newTestModel(t, backend)

	cmd := m.loadCalendarsCmd()
	cmd = press(t, m, cmd())
	if cmd == nil {
		t.Fatal("calendars loaded without a refresh")
	}
	press(t, m, cmd())

	choices := m.engine.Calendars()
	if len(choices) != 2 || !choices[0].Selected || !choices[1].Selected {
		t.Fatalf("choices = %+v, want both selected after upgrade", choices)
	}

	press(t, m, runes("c"))
	if m.mode != ViewCalendars {
		t.Fatalf("mode = %v, want calendars", m.mode)
	}
	if !strings.Contains(m.View(), "[x] Movie Screenings (new screenings)") {
		t.Error("picker does not mark the target calendar")
	}

	press(t, m, runes("j"))
	press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	if m.engine.Calendars()[1].Selected {
		t.Error("Home still selected after toggle")
	}

	cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != ViewWeek || cmd == nil {
		t.Fatalf("closing the picker: mode=%v cmd=%v", m.mode, cmd)
	}
	press(t, m, cmd())
	if got := m.engine.Selection(); len(got) != 1 || got[0] != "movies" {
		t.Errorf("selection = %v", got)
	}
}

func TestZoom(t *testing.T) {
	m := newTestModel(t, nil)
	if m.timeIncrement != 30 {
		t.Fatalf("default increment = %d", m.timeIncrement)
	}

	tests := []struct {
		key  string
		want int
	}{
		{"+", 15},
		{"+", 15},
		{"-", 30},
		{"-", 60},
		{"-", 60},
	}
	for _, tt := range tests {
		press(t, m, runes(tt.key))
		if m.timeIncrement != tt.want {
			t.Errorf("after %q: increment = %d, want %d", tt.key, m.timeIncrement, tt.want)
		}
	}
}

func TestScreeningsMsg(t *testing.T) {
	m := newTestModel(t, nil)

	press(t, m, ScreeningsMsg{Screenings: []screening.Screening{show("Persona", 13, 20, 0, 83)}, Skipped: 2})
	if m.message != "Loaded 1 screenings (2 skipped)" {
		t.Errorf("message = %q", m.message)
	}
	if got := len(m.layout.Days[4].Blocks); got != 1 {
		t.Errorf("Thursday blocks = %d, want 1", got)
	}

	press(t, m, ScreeningsMsg{Err: errors.New("unexpected end of JSON input")})
	if !strings.HasPrefix(m.message, "Reload failed") {
		t.Errorf("message = %q", m.message)
	}
	if got := len(m.engine.Screenings()); got != 1 {
		t.Errorf("failed reload replaced screenings: %d", got)
	}
}

func TestMessageTimeout(t *testing.T) {
	m := newTestModel(t, nil)
	m.showMessage("first")
	stale := messageTimeoutMsg{seq: m.messageSeq}
	m.showMessage("second")

	press(t, m, stale)
	if m.message != "second" {
		t.Errorf("stale timeout cleared %q", m.message)
	}
	press(t, m, messageTimeoutMsg{seq: m.messageSeq})
	if m.message != "" {
		t.Errorf("message = %q, want cleared", m.message)
	}
}

func TestHelpView(t *testing.T) {
	m := newTestModel(t, nil)
	press(t, m, runes("?"))
	if m.mode != ViewHelp {
		t.Fatal("help not shown")
	}
	view := m.View()
	for _, want := range []string{"Next week", "Add screening to calendar", "Quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("help missing %q", want)
		}
	}
	press(t, m, runes("x"))
	if m.mode != ViewWeek {
		t.Error("any key should close help")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, nil)
	cmd := press(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}
