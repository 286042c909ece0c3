package ui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/cinemacal/cinemacal/internal/layout"
)

const (
	timeWidth  = 7 // "HH:MM  "
	headerRows = 1
	statusRows = 2

	// zStride leaves room for the strips of one stack between elements.
	zStride  = 64
	zSidebar = 1 << 20
	zStatus  = 1 << 21
)

// grid is the screen geometry of the week schedule.
type grid struct {
	scheduleWidth int
	colWidth      int
	rows          int
	top           float64 // minute of day at the first row
	inc           int
}

func (m *Model) grid() grid {
	scheduleWidth := m.width * 2 / 3
	if scheduleWidth < timeWidth+7*4 {
		scheduleWidth = timeWidth + 7*4
	}

	g := grid{
		scheduleWidth: scheduleWidth,
		colWidth:      (scheduleWidth - timeWidth) / 7,
		inc:           m.timeIncrement,
		top:           float64(m.layout.FirstHour*60 + m.scroll*m.timeIncrement),
	}

	g.rows = m.height - headerRows - statusRows
	if left := int(math.Ceil((24*60 - g.top) / float64(g.inc))); left < g.rows {
		g.rows = left
	}
	if g.rows < 1 {
		g.rows = 1
	}
	return g
}

// span maps a minute range to visible rows. ok is false when the range is
// entirely above or below the grid.
func (g grid) span(start, end float64) (y, h int, ok bool) {
	r0 := int(math.Floor((start - g.top) / float64(g.inc)))
	r1 := int(math.Ceil((end - g.top) / float64(g.inc)))
	if r1 <= 0 || r0 >= g.rows {
		return 0, 0, false
	}
	if r0 < 0 {
		r0 = 0
	}
	if r1 > g.rows {
		r1 = g.rows
	}
	if r1 <= r0 {
		r1 = r0 + 1
	}
	return headerRows + r0, r1 - r0, true
}

func (g grid) dayX(day int) int {
	return timeWidth + day*g.colWidth
}

// blockWidth leaves one cell between day columns.
func (g grid) blockWidth() int {
	if g.colWidth < 2 {
		return 1
	}
	return g.colWidth - 1
}

// renderCanvasView renders the entire screen using a lipgloss Canvas
func (m *Model) renderCanvasView() string {
	layers, _ := m.buildScene()
	return lipgloss.NewCanvas(layers...).Render()
}

// buildScene lays out every layer of the week view together with the
// click targets of the grid. Rendering and hit testing share it so that
// what is clicked is what was drawn.
func (m *Model) buildScene() ([]*lipgloss.Layer, []layout.Target) {
	g := m.grid()

	var layers []*lipgloss.Layer
	layers = append(layers, m.createHeaderLayers(g)...)
	layers = append(layers, m.createTimeColumnLayers(g)...)

	blockLayers, targets := m.createBlockLayers(g)
	layers = append(layers, blockLayers...)

	if m.layout.Empty() {
		layers = append(layers, m.createPlaceholderLayer(g))
	}

	sidebarWidth := m.width - g.scheduleWidth - 1
	if sidebarWidth > 0 {
		layers = append(layers, m.createSidebarLayer(g.scheduleWidth+1, sidebarWidth))
	}

	layers = append(layers, m.createStatusBarLayers()...)
	return layers, targets
}

func (m *Model) createHeaderLayers(g grid) []*lipgloss.Layer {
	var layers []*lipgloss.Layer
	today := m.now().In(m.engine.Location()).Format("2006-01-02")
	for i, day := range m.layout.Days {
		style := m.styles.Header
		if day.Key == today {
			style = m.styles.Today
		}
		label := fit(day.Date.Format("Mon 1/2"), g.blockWidth())
		layers = append(layers, lipgloss.NewLayer(style.Render(label)).X(g.dayX(i)).Y(0).Z(0))
	}
	return layers
}

// createTimeColumnLayers creates one layer per row label.
func (m *Model) createTimeColumnLayers(g grid) []*lipgloss.Layer {
	var layers []*lipgloss.Layer
	now := m.now().In(m.engine.Location())
	nowMinutes := float64(now.Hour()*60 + now.Minute())
	inWeek := !now.Before(m.layout.WeekStart) && now.Before(m.layout.WeekStart.AddDate(0, 0, 7))

	for r := 0; r < g.rows; r++ {
		minute := g.top + float64(r*g.inc)
		style := m.styles.Normal
		if inWeek && minute <= nowMinutes && nowMinutes < minute+float64(g.inc) {
			style = m.styles.Today
		}
		label := style.Render(formatMinutes(minute))
		layers = append(layers, lipgloss.NewLayer(label).X(0).Y(headerRows+r).Z(0))
	}
	return layers
}

// createBlockLayers draws standalone blocks and stacks. Within a day,
// elements paint in start order unless raised; stack strips paint in
// render order so the primary is on top.
func (m *Model) createBlockLayers(g grid) ([]*lipgloss.Layer, []layout.Target) {
	var layers []*lipgloss.Layer
	var targets []layout.Target

	focusKey := ""
	if el, ok := m.focused(); ok {
		focusKey = el.key
	}

	els := elementsOf(m.layout)
	byDay := make([][]element, 7)
	for _, el := range els {
		byDay[el.day] = append(byDay[el.day], el)
	}

	width := g.blockWidth()
	for day, dayEls := range byDay {
		sort.SliceStable(dayEls, func(i, j int) bool {
			return m.paint.Rank(dayEls[i].key) < m.paint.Rank(dayEls[j].key)
		})

		for p, el := range dayEls {
			base := 1 + p*zStride

			if !el.isStack {
				b := el.block
				y, h, ok := g.span(b.StartMinutes, b.EndMinutes)
				if !ok {
					continue
				}
				box := layout.Box{X: g.dayX(day), Y: y, W: width, H: h}
				style := m.blockStyle(b, el.key == focusKey)
				content := renderBox(style, m.blockLines(b), box.W, box.H)
				layers = append(layers, lipgloss.NewLayer(content).X(box.X).Y(box.Y).Z(base))
				targets = append(targets, layout.Target{
					Box:      box,
					Z:        base,
					DayKey:   b.DayKey,
					Identity: b.Identity(),
					Topmost:  true,
				})
				continue
			}

			s := el.stack
			y, h, ok := g.span(s.StartMinutes, s.EndMinutes)
			if !ok {
				continue
			}
			for _, strip := range s.Strips(width, m.config.PeekWidth) {
				b := s.Members[strip.Member]
				box := layout.Box{X: g.dayX(day) + strip.X, Y: y, W: strip.Width, H: h}
				focused := el.key == focusKey && strip.Member == m.focusMember
				lines := m.blockLines(b)
				if strip.Member != s.Primary {
					lines = lines[:1]
				}
				content := renderBox(m.blockStyle(b, focused), lines, box.W, box.H)
				z := base + strip.Z
				layers = append(layers, lipgloss.NewLayer(content).X(box.X).Y(box.Y).Z(z))
				targets = append(targets, layout.Target{
					Box:      box,
					Z:        z,
					DayKey:   s.DayKey,
					Identity: b.Identity(),
					StackKey: s.Key,
					Member:   strip.Member,
					Topmost:  strip.Member == s.Primary,
				})
			}
		}
	}
	return layers, targets
}

func (m *Model) createPlaceholderLayer(g grid) *lipgloss.Layer {
	text := "No screenings or events this week"
	if len(m.engine.Screenings()) == 0 {
		text = "No screenings loaded"
	}
	width := g.scheduleWidth - timeWidth
	placeholder := m.styles.Help.Width(width).Align(lipgloss.Center).Render(text)
	return lipgloss.NewLayer(placeholder).X(timeWidth).Y(headerRows + g.rows/2).Z(1)
}

// createSidebarLayer creates the sidebar with the focused element's details
func (m *Model) createSidebarLayer(xOffset, width int) *lipgloss.Layer {
	var lines []string

	start := m.layout.WeekStart
	end := start.AddDate(0, 0, 6)
	lines = append(lines, m.styles.Header.Render(fit("Week of "+start.Format("Jan 2")+" - "+end.Format("Jan 2, 2006"), width)))
	lines = append(lines, "")

	lines = append(lines, m.styles.Header.Render("Selected"))
	lines = append(lines, m.renderDetail(width-1)...)
	lines = append(lines, "")

	lines = append(lines, m.styles.Header.Render("Calendars"))
	lines = append(lines, m.calendarSummary(width)...)

	// Never grow the canvas past the screen.
	if limit := m.height - statusRows; len(lines) > limit && limit > 0 {
		lines = lines[:limit]
	}

	return lipgloss.NewLayer(strings.Join(lines, "\n")).
		X(xOffset).
		Y(0).
		Z(zSidebar)
}

func (m *Model) calendarSummary(width int) []string {
	if !m.engine.HasBackend() {
		return []string{m.styles.Help.Render("(no backend)")}
	}
	choices := m.engine.Calendars()
	if len(choices) == 0 {
		return []string{m.styles.Help.Render("(loading)")}
	}
	selected := 0
	for _, c := range choices {
		if c.Selected {
			selected++
		}
	}
	lines := []string{fmt.Sprintf("%d of %d shown", selected, len(choices))}
	if target := m.engine.Target(); target.ID != "" {
		lines = append(lines, fit("Adding to: "+target.Label, width))
	}
	return lines
}

// createStatusBarLayers creates layers for the status bar at the bottom of the screen
func (m *Model) createStatusBarLayers() []*lipgloss.Layer {
	var layers []*lipgloss.Layer
	y := m.height - statusRows

	status := fmt.Sprintf(" %s | Screenings: %d | Events: %d",
		m.layout.WeekStart.Format("Week of Jan 2, 2006"),
		len(m.engine.Screenings()),
		len(m.engine.Events()))
	if m.fetching {
		status += " | fetching..."
	}
	layers = append(layers, lipgloss.NewLayer(m.styles.Help.Render(status)).X(0).Y(y).Z(zStatus))

	if m.message != "" {
		layers = append(layers, lipgloss.NewLayer(m.styles.Message.Render(m.message)).X(0).Y(y+1).Z(zStatus))
		return layers
	}

	helpText := m.statusHelp()
	rightAlignedHelp := m.styles.Help.Width(m.width).Align(lipgloss.Right).Render(helpText)
	layers = append(layers, lipgloss.NewLayer(rightAlignedHelp).X(0).Y(y+1).Z(zStatus))
	return layers
}

func (m *Model) statusHelp() string {
	pairs := []struct{ action, label string }{
		{"focus_next", "focus"},
		{"member_next", "member"},
		{"promote", "promote"},
		{"add", "add"},
		{"remove", "remove"},
		{"next_week", "week"},
		{"goto_date", "goto"},
		{"calendars", "calendars"},
		{"help", "help"},
		{"quit", "quit"},
	}
	var parts []string
	for _, p := range pairs {
		if key := m.config.KeyFor(p.action); key != "" {
			parts = append(parts, key+":"+p.label)
		}
	}
	return strings.Join(parts, "  ")
}
