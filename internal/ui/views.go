package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/v2"
)

var helpActions = []struct {
	action string
	text   string
}{
	{"next_week", "Next week"},
	{"prev_week", "Previous week"},
	{"today", "This week"},
	{"goto_date", "Go to date"},
	{"scroll_down", "Scroll later"},
	{"scroll_up", "Scroll earlier"},
	{"zoom_in", "Shorter rows"},
	{"zoom_out", "Longer rows"},
	{"", ""},
	{"focus_next", "Next block"},
	{"focus_prev", "Previous block"},
	{"member_next", "Next overlapping screening"},
	{"member_prev", "Previous overlapping screening"},
	{"promote", "Bring selected screening to front"},
	{"", ""},
	{"add", "Add screening to calendar"},
	{"remove", "Remove screening from calendar"},
	{"calendars", "Choose calendars"},
	{"refresh", "Refresh events"},
	{"help", "Toggle help"},
	{"quit", "Quit"},
}

func (m *Model) viewHelp() string {
	help := []string{
		m.styles.Header.Render("cinemacal Help"),
		"",
	}
	for _, h := range helpActions {
		if h.action == "" {
			help = append(help, "")
			continue
		}
		key := m.config.KeyFor(h.action)
		if key == "" {
			continue
		}
		help = append(help, m.styles.Help.Render(fmt.Sprintf("  %-9s - %s", key, h.text)))
	}
	help = append(help,
		"",
		m.styles.Help.Render("  Click a buried screening to bring it to the front."),
		"",
		m.styles.Help.Render("Press any key to return..."),
	)

	return lipgloss.JoinVertical(lipgloss.Left, help...)
}

func (m *Model) viewGoto() string {
	var sections []string

	sections = append(sections, m.styles.Header.Render("Go to Date"))
	sections = append(sections, "")
	sections = append(sections, m.styles.Normal.Render("Enter a date (e.g. 'next friday', '3/14', 'in 2 weeks'):"))

	// Show input with cursor
	input := m.inputBuffer
	if m.cursorPos < len(input) {
		input = input[:m.cursorPos] + "█" + input[m.cursorPos:]
	} else {
		input = input + "█"
	}

	sections = append(sections, m.styles.Selected.Render(input))
	sections = append(sections, "")
	sections = append(sections, m.styles.Help.Render("Enter to go, Esc to cancel"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) viewCalendars() string {
	lines := []string{
		m.styles.Header.Render("Calendars"),
		"",
	}

	choices := m.engine.Calendars()
	if len(choices) == 0 {
		lines = append(lines, m.styles.Help.Render("(no calendars loaded)"))
	}
	for i, c := range choices {
		mark := "[ ]"
		if c.Selected {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, c.Label)
		if c.Target {
			line += " (new screenings)"
		}
		if i == m.calendarCursor {
			line = m.styles.Selected.Render(line)
		} else {
			line = m.styles.Normal.Render(line)
		}
		lines = append(lines, line)
	}

	lines = append(lines, "", m.styles.Help.Render("j/k: move  space: toggle  enter/esc: done"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
