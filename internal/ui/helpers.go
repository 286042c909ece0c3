package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cinemacal/cinemacal/internal/layout"
	"github.com/cinemacal/cinemacal/internal/screening"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

// element is one focusable thing on the grid: a standalone block or a stack.
type element struct {
	day     int
	key     string
	isStack bool
	block   layout.Block
	stack   layout.Stack
	start   float64
}

// elementsOf lists the week's elements by day, then start time.
func elementsOf(w layout.WeekLayout) []element {
	var out []element
	for d, day := range w.Days {
		var els []element
		for _, b := range day.Blocks {
			els = append(els, element{day: d, key: b.Identity(), block: b, start: b.StartMinutes})
		}
		for _, s := range day.Stacks {
			els = append(els, element{day: d, key: s.Key, isStack: true, stack: s, start: s.StartMinutes})
		}
		sort.SliceStable(els, func(i, j int) bool {
			if els[i].start != els[j].start {
				return els[i].start < els[j].start
			}
			return els[i].key < els[j].key
		})
		out = append(out, els...)
	}
	return out
}

func (m *Model) focused() (element, bool) {
	els := elementsOf(m.layout)
	if m.focusIndex < 0 || m.focusIndex >= len(els) {
		return element{}, false
	}
	return els[m.focusIndex], true
}

// focusedBlock is the focused standalone block, or the member under the
// cursor of a focused stack.
func (m *Model) focusedBlock() (layout.Block, bool) {
	el, ok := m.focused()
	if !ok {
		return layout.Block{}, false
	}
	if !el.isStack {
		return el.block, true
	}
	if m.focusMember < 0 || m.focusMember >= len(el.stack.Members) {
		return el.stack.PrimaryBlock(), true
	}
	return el.stack.Members[m.focusMember], true
}

func (m *Model) moveFocus(delta int) {
	els := elementsOf(m.layout)
	if len(els) == 0 {
		return
	}
	i := m.focusIndex + delta
	if m.focusKey == "" {
		i = 0
	}
	i = (i%len(els) + len(els)) % len(els)
	m.setFocus(els[i], i)
}

func (m *Model) setFocus(el element, i int) {
	m.focusIndex = i
	m.focusKey = el.key
	m.focusMember = 0
	if el.isStack {
		m.focusMember = el.stack.Primary
	}
}

// focusOn focuses the element with key, placing the member cursor on member.
func (m *Model) focusOn(key string, member int) {
	for i, el := range elementsOf(m.layout) {
		if el.key == key {
			m.focusIndex = i
			m.focusKey = key
			m.focusMember = member
			return
		}
	}
}

func (m *Model) cycleMember(delta int) {
	el, ok := m.focused()
	if !ok || !el.isStack {
		return
	}
	n := len(el.stack.Members)
	m.focusMember = ((m.focusMember+delta)%n + n) % n
}

// restoreFocus finds the focused element again after a relayout. When its
// key is gone (a group's membership changed) the index is kept in range.
func (m *Model) restoreFocus() {
	if m.focusKey == "" {
		return
	}
	els := elementsOf(m.layout)
	for i, el := range els {
		if el.key == m.focusKey {
			m.focusIndex = i
			if el.isStack && m.focusMember >= len(el.stack.Members) {
				m.focusMember = el.stack.Primary
			}
			return
		}
	}
	if len(els) == 0 {
		m.focusKey = ""
		m.focusIndex = 0
		m.focusMember = 0
		return
	}
	if m.focusIndex >= len(els) {
		m.focusIndex = len(els) - 1
	}
	m.setFocus(els[m.focusIndex], m.focusIndex)
}

// blockStyle picks the background for a block.
func (m *Model) blockStyle(b layout.Block, focused bool) lipgloss.Style {
	switch {
	case focused:
		return m.styles.Focused
	case b.Kind == layout.KindScreening && m.pending[b.ScreeningID]:
		return m.styles.Pending
	case b.Kind == layout.KindScreening && b.OnCalendar:
		return m.styles.Linked
	case b.Kind == layout.KindScreening:
		return m.styles.Screening
	default:
		return m.styles.External
	}
}

// blockLines is the text of a block, most important first.
func (m *Model) blockLines(b layout.Block) []string {
	title := b.Title
	if b.Kind == layout.KindScreening {
		switch {
		case m.pending[b.ScreeningID]:
			title = "… " + title
		case b.OnCalendar:
			title = "✓ " + title
		}
	}
	return []string{
		title,
		b.Subtitle,
		formatMinutes(b.StartMinutes) + "-" + formatMinutes(b.EndMinutes),
	}
}

// renderBox renders lines into a w×h cell box.
func renderBox(style lipgloss.Style, lines []string, w, h int) string {
	if len(lines) > h {
		lines = lines[:h]
	}
	fitted := make([]string, len(lines))
	for i, line := range lines {
		fitted[i] = fit(line, w)
	}
	return style.Width(w).Height(h).Render(strings.Join(fitted, "\n"))
}

// fit truncates s to w cells, marking the cut when there is room.
func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= w {
		return s
	}
	if w < 3 {
		return truncate.String(s, uint(w))
	}
	return truncate.StringWithTail(s, uint(w), "…")
}

func formatMinutes(minutes float64) string {
	total := int(minutes)
	return fmt.Sprintf("%02d:%02d", (total/60)%24, total%60)
}

// renderDetail describes the focused element for the sidebar.
func (m *Model) renderDetail(width int) []string {
	el, ok := m.focused()
	if !ok {
		return []string{m.styles.Help.Render("(nothing selected)")}
	}

	var lines []string
	if el.isStack {
		lines = append(lines, m.styles.Help.Render(fmt.Sprintf("%d overlapping", len(el.stack.Members))))
		for i, b := range el.stack.Members {
			marker := "  "
			if i == m.focusMember {
				marker = "▸ "
			}
			if i == el.stack.Primary {
				marker += "* "
			}
			line := fit(marker+formatMinutes(b.StartMinutes)+" "+b.Title, width)
			if i == m.focusMember {
				line = m.styles.Selected.Render(line)
			}
			lines = append(lines, line)
		}
		lines = append(lines, "")
	}

	b, _ := m.focusedBlock()
	lines = append(lines, wrap(m.styles.Today.Render(b.Title), width)...)
	lines = append(lines, formatMinutes(b.StartMinutes)+"-"+formatMinutes(b.EndMinutes)+"  "+el.dayLabel(m.layout))

	if b.Kind == layout.KindExternal {
		lines = append(lines, wrap("Calendar: "+b.CalendarLabel, width)...)
		return lines
	}

	if s, ok := m.engine.Screening(b.ScreeningID); ok {
		lines = append(lines, m.screeningDetail(s, width)...)
	}

	switch {
	case m.pending[b.ScreeningID]:
		lines = append(lines, m.styles.Help.Render("Saving..."))
	case b.OnCalendar:
		lines = append(lines, m.styles.Help.Render(fmt.Sprintf("On calendar (%s: remove)", m.config.KeyFor("remove"))))
	default:
		lines = append(lines, m.styles.Help.Render(fmt.Sprintf("Not on calendar (%s: add)", m.config.KeyFor("add"))))
	}
	return lines
}

func (m *Model) screeningDetail(s screening.Screening, width int) []string {
	venue := s.Venue
	if addr, ok := screening.VenueAddress(s.Venue); ok {
		venue += ", " + addr
	}
	lines := wrap(venue, width)

	var facts []string
	if s.Director != "" {
		facts = append(facts, "Dir. "+s.Director)
	}
	if s.Year != nil {
		facts = append(facts, fmt.Sprint(*s.Year))
	}
	if s.RuntimeMinutes != nil {
		facts = append(facts, fmt.Sprintf("%d min", *s.RuntimeMinutes))
	}
	if len(facts) > 0 {
		lines = append(lines, wrap(strings.Join(facts, ", "), width)...)
	}
	if len(s.Tags) > 0 {
		lines = append(lines, wrap(strings.Join(s.Tags, ", "), width)...)
	}
	if s.Extra != "" {
		lines = append(lines, wrap(s.Extra, width)...)
	}
	if s.SourceURL != "" {
		lines = append(lines, m.styles.Help.Render(fit(s.SourceURL, width)))
	}
	return lines
}

func (el element) dayLabel(w layout.WeekLayout) string {
	return w.Days[el.day].Date.Format("Mon Jan 2")
}

func wrap(s string, width int) []string {
	if width < 10 {
		width = 10
	}
	return strings.Split(wordwrap.String(s, width), "\n")
}
