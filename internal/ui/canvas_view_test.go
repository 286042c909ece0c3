package ui

import (
	"strings"
	"testing"

	"github.com/cinemacal/cinemacal/internal/layout"
)

func TestGridSpan(t *testing.T) {
	g := grid{rows: 20, top: 8 * 60, inc: 30}

	tests := []struct {
		name       string
		start, end float64
		wantY      int
		wantH      int
		wantOK     bool
	}{
		{"aligned two hours", 10 * 60, 12 * 60, 5, 4, true},
		{"partial rows round outward", 10*60 + 10, 10*60 + 40, 1 + 4, 2, true},
		{"short block keeps a row", 9 * 60, 9*60 + 15, 3, 1, true},
		{"clipped at the top", 7 * 60, 9 * 60, 1, 2, true},
		{"clipped at the bottom", 17*60 + 30, 20 * 60, 20, 1, true},
		{"above the grid", 6 * 60, 8 * 60, 0, 0, false},
		{"below the grid", 18 * 60, 19 * 60, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, h, ok := g.span(tt.start, tt.end)
			if ok != tt.wantOK || (ok && (y != tt.wantY || h != tt.wantH)) {
				t.Errorf("span(%v, %v) = (%d, %d, %v), want (%d, %d, %v)",
					tt.start, tt.end, y, h, ok, tt.wantY, tt.wantH, tt.wantOK)
			}
		})
	}
}

func TestGridStopsAtMidnight(t *testing.T) {
	m := newTestModel(t, nil)
	m.height = 200
	g := m.grid()
	if want := (24 - m.layout.FirstHour) * 60 / m.timeIncrement; g.rows != want {
		t.Errorf("rows = %d, want %d", g.rows, want)
	}
}

func TestFirstHourFollowsEarliestBlock(t *testing.T) {
	m := newTestModel(t, nil, show("Matinee", 12, 6, 45, 90))
	if m.layout.FirstHour != 6 {
		t.Fatalf("first hour = %d, want 6", m.layout.FirstHour)
	}
	if !strings.Contains(m.View(), "06:00") {
		t.Error("gutter does not start at 06:00")
	}
}

func TestStackStripsPaintPrimaryOnTop(t *testing.T) {
	m := newTestModel(t, nil, overlapping()...)
	_, targets := m.buildScene()

	var strips []layout.Target
	for _, tg := range targets {
		if tg.StackKey != "" {
			strips = append(strips, tg)
		}
	}
	if len(strips) != 3 {
		t.Fatalf("strips = %d, want 3", len(strips))
	}

	var primary layout.Target
	for _, s := range strips {
		if s.Topmost {
			primary = s
		}
	}
	for _, s := range strips {
		if !s.Topmost && s.Z >= primary.Z {
			t.Errorf("member %d z=%d not below primary z=%d", s.Member, s.Z, primary.Z)
		}
		if s.Box.H != primary.Box.H || s.Box.Y != primary.Box.Y {
			t.Errorf("member %d does not span the group's rows", s.Member)
		}
	}
	if primary.Box.W <= m.config.PeekWidth {
		t.Errorf("primary width %d not wider than a peek strip", primary.Box.W)
	}
}

func TestRaisedBlockPaintsLast(t *testing.T) {
	// Both blocks share the 10:00 row at 30 minute rows.
	m := newTestModel(t, nil,
		show("First", 10, 10, 0, 15),
		show("Second", 10, 10, 15, 45),
	)
	_, targets := m.buildScene()
	if len(targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(targets))
	}

	first := targets[0]
	if first.Z > targets[1].Z {
		first = targets[1]
	}
	m.paint.Raise(first.Identity)

	_, targets = m.buildScene()
	for _, tg := range targets {
		if tg.Identity != first.Identity && tg.Z > zOf(targets, first.Identity) {
			t.Errorf("raised block z=%d below %s z=%d", zOf(targets, first.Identity), tg.Identity, tg.Z)
		}
	}
}

func zOf(targets []layout.Target, identity string) int {
	for _, tg := range targets {
		if tg.Identity == identity {
			return tg.Z
		}
	}
	return -1
}

func TestStatusBar(t *testing.T) {
	m := newTestModel(t, nil, show("Vertigo", 10, 19, 0, 128))
	view := m.View()
	if !strings.Contains(view, "Screenings: 1") {
		t.Error("status line missing screening count")
	}
	if !strings.Contains(view, "q:quit") {
		t.Error("help line missing quit key")
	}

	m.showMessage("Added Vertigo")
	if !strings.Contains(m.View(), "Added Vertigo") {
		t.Error("message not shown")
	}
}

func TestSidebarDetail(t *testing.T) {
	director := "Alfred Hitchcock"
	s := show("Vertigo", 10, 19, 0, 128)
	s.Director = director
	s.Tags = []string{"35mm"}
	m := newTestModel(t, nil, s)
	m.moveFocus(1)

	view := m.View()
	for _, want := range []string{"Dir. Alfred Hitchcock", "128 min", "Not on calendar"} {
		if !strings.Contains(view, want) {
			t.Errorf("sidebar missing %q", want)
		}
	}
}
