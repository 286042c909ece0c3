package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cinemacal/cinemacal/internal/calendar"
	"github.com/cinemacal/cinemacal/internal/config"
	"github.com/cinemacal/cinemacal/internal/engine"
	"github.com/cinemacal/cinemacal/internal/layout"
	"github.com/cinemacal/cinemacal/internal/log"
	"github.com/cinemacal/cinemacal/internal/parser"
	"github.com/cinemacal/cinemacal/internal/screening"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/v2"
)

const (
	requestTimeout = 30 * time.Second
	messageTimeout = 3 * time.Second
)

type ViewMode int

const (
	ViewWeek ViewMode = iota
	ViewHelp
	ViewGoto
	ViewCalendars
)

type Model struct {
	// Core components
	config *config.Config
	engine *engine.Engine
	parser *parser.DateParser
	now    func() time.Time

	// View state
	mode     ViewMode
	layout   layout.WeekLayout
	paint    layout.PaintOrder
	pending  map[string]bool // screening id -> add/remove dispatched
	fetching bool

	// Focus is kept by key so it survives relayouts.
	focusKey    string
	focusIndex  int
	focusMember int

	timeIncrement int
	scroll        int // rows relative to the first hour

	// Calendar picker
	calendarCursor int
	calendarsDirty bool

	// UI state
	width      int
	height     int
	message    string
	messageSeq int

	// Goto input
	inputBuffer string
	cursorPos   int

	styles Styles
}

type Styles struct {
	Normal    lipgloss.Style
	Selected  lipgloss.Style
	Today     lipgloss.Style
	Header    lipgloss.Style
	Help      lipgloss.Style
	Message   lipgloss.Style
	Error     lipgloss.Style
	Border    lipgloss.Style
	Screening lipgloss.Style
	Linked    lipgloss.Style
	External  lipgloss.Style
	Pending   lipgloss.Style
	Focused   lipgloss.Style
}

func NewModel(cfg *config.Config, eng *engine.Engine) *Model {
	m := &Model{
		config:        cfg,
		engine:        eng,
		parser:        parser.NewDateParser(eng.Location()),
		now:           time.Now,
		mode:          ViewWeek,
		pending:       make(map[string]bool),
		timeIncrement: cfg.TimeIncrement,
		styles:        StylesFromColors(cfg.Colors),
	}
	if m.timeIncrement <= 0 {
		m.timeIncrement = 30
	}
	m.relayout()
	return m
}

func DefaultStyles() Styles {
	return StylesFromColors(nil)
}

// StylesFromColors builds styles from ANSI colour indexes keyed by element
// name. Missing elements keep their defaults.
func StylesFromColors(colors map[string]string) Styles {
	c := map[string]string{
		"screening": "12",
		"linked":    "10",
		"external":  "8",
		"pending":   "11",
		"focused":   "15",
		"today":     "3",
		"header":    "7",
		"error":     "9",
	}
	for k, v := range colors {
		c[k] = v
	}

	block := lipgloss.NewStyle().Foreground(lipgloss.Color("0"))
	return Styles{
		Normal: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("235")).
			Background(lipgloss.Color("220")).
			Bold(true),
		Today: lipgloss.NewStyle().
			Foreground(lipgloss.Color(c["today"])).
			Bold(true),
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(c["header"])).
			Bold(true).
			Underline(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Message: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(c["error"])).
			Bold(true),
		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")),
		Screening: block.Background(lipgloss.Color(c["screening"])),
		Linked:    block.Background(lipgloss.Color(c["linked"])),
		External:  block.Background(lipgloss.Color(c["external"])),
		Pending:   block.Background(lipgloss.Color(c["pending"])),
		Focused:   block.Background(lipgloss.Color(c["focused"])).Bold(true),
	}
}

func (m *Model) Init() tea.Cmd {
	if !m.engine.HasBackend() {
		return tea.EnterAltScreen
	}
	m.fetching = true
	return tea.Batch(
		tea.EnterAltScreen,
		m.loadCalendarsCmd(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case ScreeningsMsg:
		if msg.Err != nil {
			return m, m.showError("Reload failed", msg.Err)
		}
		m.engine.SetScreenings(msg.Screenings)
		m.relayout()
		text := fmt.Sprintf("Loaded %d screenings", len(msg.Screenings))
		if msg.Skipped > 0 {
			text += fmt.Sprintf(" (%d skipped)", msg.Skipped)
		}
		return m, m.showMessage(text)

	case RefreshMsg:
		if m.fetching || !m.engine.HasBackend() {
			return m, nil
		}
		m.fetching = true
		return m, m.refreshCmd(true)

	case calendarsLoadedMsg:
		if msg.err != nil {
			m.fetching = false
			return m, m.showError("Loading calendars failed", msg.err)
		}
		return m, m.refreshCmd(false)

	case fetchDoneMsg:
		m.fetching = false
		if msg.weekChanged {
			m.scroll = 0
		}
		m.relayout()
		if msg.err != nil {
			return m, m.showError("Fetching events failed", msg.err)
		}
		return m, nil

	case addDoneMsg:
		delete(m.pending, msg.screeningID)
		m.relayout()
		if msg.err != nil {
			return m, m.showError("Adding "+msg.title+" failed", msg.err)
		}
		return m, m.showMessage("Added " + msg.title)

	case removeDoneMsg:
		delete(m.pending, msg.screeningID)
		m.relayout()
		if msg.err != nil {
			return m, m.showError("Removing "+msg.title+" failed", msg.err)
		}
		return m, m.showMessage("Removed " + msg.title)

	case messageTimeoutMsg:
		if msg.seq == m.messageSeq {
			m.message = ""
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	switch m.mode {
	case ViewHelp:
		return m.viewHelp()
	case ViewGoto:
		return m.viewGoto()
	case ViewCalendars:
		return m.viewCalendars()
	default:
		return m.renderCanvasView()
	}
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case ViewHelp:
		m.mode = ViewWeek
		return m, nil
	case ViewGoto:
		return m.handleGotoKeys(msg)
	case ViewCalendars:
		return m.handleCalendarKeys(msg)
	}

	return m.handleWeekKeys(msg)
}

func (m *Model) handleWeekKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.config.KeyBindings[msg.String()] {
	case "quit":
		return m, tea.Quit

	case "help":
		m.mode = ViewHelp

	case "refresh":
		if !m.engine.HasBackend() {
			return m, m.showMessage("No calendar backend configured")
		}
		if m.fetching {
			return m, nil
		}
		m.fetching = true
		return m, tea.Batch(m.refreshCmd(true), m.showMessage("Refreshing..."))

	case "next_week":
		return m, m.weekCmd(m.engine.NextWeek)

	case "prev_week":
		return m, m.weekCmd(m.engine.PreviousWeek)

	case "today":
		now := m.now()
		return m, m.weekCmd(func(ctx context.Context) error {
			return m.engine.GotoWeek(ctx, now)
		})

	case "goto_date":
		m.mode = ViewGoto
		m.inputBuffer = ""
		m.cursorPos = 0

	case "calendars":
		if !m.engine.HasBackend() {
			return m, m.showMessage("No calendar backend configured")
		}
		m.mode = ViewCalendars
		m.calendarsDirty = false

	case "focus_next":
		m.moveFocus(1)

	case "focus_prev":
		m.moveFocus(-1)

	case "member_next":
		m.cycleMember(1)

	case "member_prev":
		m.cycleMember(-1)

	case "promote":
		return m, m.promoteFocused()

	case "add":
		return m, m.addFocused()

	case "remove":
		return m, m.removeFocused()

	case "zoom_in":
		return m, m.zoom(-1)

	case "zoom_out":
		return m, m.zoom(1)

	case "scroll_down":
		m.scrollBy(1)

	case "scroll_up":
		m.scrollBy(-1)
	}

	return m, nil
}

func (m *Model) handleGotoKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.mode = ViewWeek
		return m, nil

	case tea.KeyEnter:
		m.mode = ViewWeek
		if m.inputBuffer == "" {
			return m, nil
		}
		m.parser.SetNow(m.now())
		date, err := m.parser.Parse(m.inputBuffer)
		if err != nil {
			return m, m.showError("Invalid date", err)
		}
		return m, m.weekCmd(func(ctx context.Context) error {
			return m.engine.GotoWeek(ctx, date)
		})

	case tea.KeyBackspace:
		if m.cursorPos > 0 {
			m.inputBuffer = m.inputBuffer[:m.cursorPos-1] + m.inputBuffer[m.cursorPos:]
			m.cursorPos--
		}

	case tea.KeyLeft:
		if m.cursorPos > 0 {
			m.cursorPos--
		}

	case tea.KeyRight:
		if m.cursorPos < len(m.inputBuffer) {
			m.cursorPos++
		}

	case tea.KeySpace:
		m.insert(" ")

	case tea.KeyRunes:
		m.insert(string(msg.Runes))
	}

	return m, nil
}

func (m *Model) insert(s string) {
	m.inputBuffer = m.inputBuffer[:m.cursorPos] + s + m.inputBuffer[m.cursorPos:]
	m.cursorPos += len(s)
}

func (m *Model) handleCalendarKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	choices := m.engine.Calendars()

	switch msg.String() {
	case "j", "down":
		if m.calendarCursor < len(choices)-1 {
			m.calendarCursor++
		}

	case "k", "up":
		if m.calendarCursor > 0 {
			m.calendarCursor--
		}

	case " ", "x":
		if m.calendarCursor >= len(choices) {
			return m, nil
		}
		if err := m.engine.ToggleCalendar(choices[m.calendarCursor].ID); err != nil {
			return m, m.showError("Saving selection failed", err)
		}
		m.calendarsDirty = true

	case "esc", "enter", "q", "c":
		m.mode = ViewWeek
		if m.calendarsDirty && !m.fetching {
			m.calendarsDirty = false
			m.fetching = true
			return m, m.refreshCmd(false)
		}
	}

	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.mode != ViewWeek {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelDown:
		m.scrollBy(1)
		return m, nil
	case tea.MouseButtonWheelUp:
		m.scrollBy(-1)
		return m, nil
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
	default:
		return m, nil
	}

	_, targets := m.buildScene()
	hit, ok := layout.HitTest(targets, msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	return m, m.activate(hit)
}

// activate applies a click on a rendered target: a buried stack member is
// promoted, anything already on top is raised.
func (m *Model) activate(hit layout.Target) tea.Cmd {
	if hit.StackKey == "" {
		m.paint.Raise(hit.Identity)
		m.focusOn(hit.Identity, 0)
		return nil
	}

	m.focusOn(hit.StackKey, hit.Member)
	if hit.Topmost {
		m.paint.Raise(hit.StackKey)
		return nil
	}
	if err := m.engine.Promote(hit.StackKey, hit.Member); err != nil {
		return m.showError("Promote failed", err)
	}
	m.relayout()
	return nil
}

func (m *Model) promoteFocused() tea.Cmd {
	el, ok := m.focused()
	if !ok {
		return nil
	}
	if !el.isStack {
		m.paint.Raise(el.key)
		return nil
	}
	if m.focusMember == el.stack.Primary {
		m.paint.Raise(el.key)
		return nil
	}
	if err := m.engine.Promote(el.key, m.focusMember); err != nil {
		return m.showError("Promote failed", err)
	}
	m.relayout()
	return nil
}

func (m *Model) addFocused() tea.Cmd {
	b, ok := m.focusedBlock()
	if !ok || b.Kind != layout.KindScreening {
		return m.showMessage("No screening selected")
	}
	if !m.engine.HasBackend() {
		return m.showMessage("No calendar backend configured")
	}
	if m.pending[b.ScreeningID] {
		return m.showMessage("Still saving " + b.Title)
	}
	if b.OnCalendar {
		return m.showMessage(b.Title + " is already on the calendar")
	}

	m.pending[b.ScreeningID] = true
	id, title, eng := b.ScreeningID, b.Title, m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := eng.AddScreening(ctx, id)
		return addDoneMsg{screeningID: id, title: title, err: err}
	}
}

func (m *Model) removeFocused() tea.Cmd {
	b, ok := m.focusedBlock()
	if !ok || b.Kind != layout.KindScreening {
		return m.showMessage("No screening selected")
	}
	if !m.engine.HasBackend() {
		return m.showMessage("No calendar backend configured")
	}
	if m.pending[b.ScreeningID] {
		return m.showMessage("Still saving " + b.Title)
	}
	if !b.OnCalendar {
		return m.showMessage(b.Title + " is not on the calendar")
	}

	m.pending[b.ScreeningID] = true
	id, title, eng := b.ScreeningID, b.Title, m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := eng.RemoveScreening(ctx, id)
		return removeDoneMsg{screeningID: id, title: title, err: err}
	}
}

func (m *Model) zoom(dir int) tea.Cmd {
	increments := []int{15, 30, 60}
	i := 0
	for j, inc := range increments {
		if inc == m.timeIncrement {
			i = j
		}
	}
	i += dir
	if i < 0 || i >= len(increments) {
		return nil
	}
	old := m.timeIncrement
	m.timeIncrement = increments[i]
	m.scroll = m.scroll * old / m.timeIncrement
	return m.showMessage(fmt.Sprintf("%d minute rows", m.timeIncrement))
}

func (m *Model) scrollBy(rows int) {
	firstHour := m.layout.FirstHour
	minScroll := -firstHour * 60 / m.timeIncrement
	maxScroll := (24-firstHour)*60/m.timeIncrement - 1
	m.scroll += rows
	if m.scroll < minScroll {
		m.scroll = minScroll
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}
}

// relayout recomputes the week. Each call is one render for group state.
func (m *Model) relayout() {
	m.layout = m.engine.Layout()
	m.restoreFocus()
}

func (m *Model) loadCalendarsCmd() tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return calendarsLoadedMsg{err: eng.LoadCalendars(ctx)}
	}
}

func (m *Model) refreshCmd(force bool) tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := eng.Refresh(ctx, force)
		return fetchDoneMsg{err: err}
	}
}

func (m *Model) weekCmd(move func(context.Context) error) tea.Cmd {
	m.fetching = m.engine.HasBackend()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return fetchDoneMsg{err: move(ctx), weekChanged: true}
	}
}

func (m *Model) showMessage(msg string) tea.Cmd {
	m.message = msg
	m.messageSeq++
	seq := m.messageSeq
	return tea.Tick(messageTimeout, func(time.Time) tea.Msg {
		return messageTimeoutMsg{seq: seq}
	})
}

func (m *Model) showError(prefix string, err error) tea.Cmd {
	if errors.Is(err, engine.ErrInFlight) {
		return m.showMessage("Request already in progress")
	}
	var netErr *calendar.NetworkError
	if errors.As(err, &netErr) {
		log.Debug("network failure shown", "op", netErr.Op, "calendar", netErr.CalendarID)
		return m.showMessage(fmt.Sprintf("%s: %v (try again)", prefix, netErr.Err))
	}
	return m.showMessage(fmt.Sprintf("%s: %v", prefix, err))
}

// ScreeningsMsg carries a reloaded screenings file.
type ScreeningsMsg struct {
	Screenings []screening.Screening
	Skipped    int
	Err        error
}

// RefreshMsg asks for a forced event refresh.
type RefreshMsg struct{}

type calendarsLoadedMsg struct {
	err error
}

type fetchDoneMsg struct {
	err         error
	weekChanged bool
}

type addDoneMsg struct {
	screeningID string
	title       string
	err         error
}

type removeDoneMsg struct {
	screeningID string
	title       string
	err         error
}

type messageTimeoutMsg struct {
	seq int
}
