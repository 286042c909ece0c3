package layout

import (
	"math"
	"sort"
	"time"

	"github.com/cinemacal/cinemacal/internal/calendar"
	"github.com/cinemacal/cinemacal/internal/screening"
)

// Input is everything a week layout is computed from.
type Input struct {
	Screenings []screening.Screening
	Events     []calendar.Event
	WeekStart  time.Time
	Location   *time.Location
	// Links reports screening to event links. When nil, links are read
	// from the events' back-references.
	Links Links

	ScreeningMinutes int
	EventMinutes     int
}

// DayLayout is one column of the week grid.
type DayLayout struct {
	Date   time.Time
	Key    string
	Blocks []Block // standalone blocks
	Stacks []Stack
}

// WeekLayout is the positioned content of a displayed week.
type WeekLayout struct {
	WeekStart time.Time
	Days      [7]DayLayout
	FirstHour int
}

// Empty reports whether nothing is placed on the grid.
func (w WeekLayout) Empty() bool {
	for _, d := range w.Days {
		if len(d.Blocks) > 0 || len(d.Stacks) > 0 {
			return false
		}
	}
	return true
}

// EarliestStart returns the earliest block start in minutes, or false for
// an empty week.
func (w WeekLayout) EarliestStart() (float64, bool) {
	earliest := math.Inf(1)
	for _, d := range w.Days {
		for _, b := range d.Blocks {
			earliest = math.Min(earliest, b.StartMinutes)
		}
		for _, s := range d.Stacks {
			earliest = math.Min(earliest, s.StartMinutes)
		}
	}
	return earliest, !math.IsInf(earliest, 1)
}

// Stack finds a rendered stack by key.
func (w WeekLayout) Stack(key string) (Stack, bool) {
	for _, d := range w.Days {
		for _, s := range d.Stacks {
			if s.Key == key {
				return s, true
			}
		}
	}
	return Stack{}, false
}

type refLinks map[string]string

func (r refLinks) EventFor(id string) (string, bool) {
	ev, ok := r[id]
	return ev, ok
}

// ComputeWeekLayout places screenings and external events on the seven
// days starting at in.WeekStart. It returns the layout and the group state
// to use for the next render: pins are consumed and entries for groups of
// the displayed week that no longer exist are dropped.
func ComputeWeekLayout(in Input, state GroupState) (WeekLayout, GroupState) {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	if in.ScreeningMinutes <= 0 {
		in.ScreeningMinutes = screening.DefaultDurationMinutes
	}
	if in.EventMinutes <= 0 {
		in.EventMinutes = 60
	}

	weekStart := time.Date(in.WeekStart.Year(), in.WeekStart.Month(), in.WeekStart.Day(), 0, 0, 0, 0, loc)
	out := WeekLayout{WeekStart: weekStart}
	dayIndex := make(map[string]int, 7)
	for i := range out.Days {
		d := weekStart.AddDate(0, 0, i)
		out.Days[i] = DayLayout{Date: d, Key: d.Format("2006-01-02")}
		dayIndex[out.Days[i].Key] = i
	}

	links := in.Links
	known := make(map[string]bool, len(in.Screenings))
	for _, s := range in.Screenings {
		known[s.ID()] = true
	}
	if links == nil {
		refs := make(refLinks)
		for _, e := range in.Events {
			if e.ScreeningRef != "" {
				if _, dup := refs[e.ScreeningRef]; !dup {
					refs[e.ScreeningRef] = e.ID
				}
			}
		}
		links = refs
	}

	byDay := make([][]Block, 7)
	for _, s := range in.Screenings {
		b := FromScreening(s, in.ScreeningMinutes, links)
		if i, ok := dayIndex[b.DayKey]; ok {
			byDay[i] = append(byDay[i], b)
		}
	}
	for _, e := range in.Events {
		if e.ScreeningRef != "" && known[e.ScreeningRef] {
			continue
		}
		b, ok := FromExternalEvent(e, loc, in.EventMinutes)
		if !ok {
			continue
		}
		if i, ok := dayIndex[b.DayKey]; ok {
			byDay[i] = append(byDay[i], b)
		}
	}

	next := state.Clone()
	rendered := make(map[string]bool)
	for i := range out.Days {
		day := &out.Days[i]
		packed := PackColumns(byDay[i])
		day.Blocks, day.Stacks = resolveDay(day.Key, packed, state, rendered)
		for _, s := range day.Stacks {
			if st, ok := next[s.Key]; ok {
				st.Back = Pin{}
				next[s.Key] = st
			}
		}
	}

	for key := range next {
		if _, inWeek := dayIndex[dayOfKey(key)]; inWeek && !rendered[key] {
			delete(next, key)
		}
	}
	return out, next
}

// resolveDay splits a packed day into standalone blocks and stacks. Only
// column-0 blocks anchor a stack; a group is the anchor plus every block
// overlapping it.
func resolveDay(dayKey string, packed []Block, state GroupState, rendered map[string]bool) ([]Block, []Stack) {
	var blocks []Block
	var stacks []Stack
	for i, b := range packed {
		if b.ColumnCount == 1 {
			blocks = append(blocks, b)
			continue
		}
		if b.Column != 0 {
			continue
		}

		var members []Block
		for j, o := range packed {
			if j == i || o.Overlaps(b) {
				members = append(members, o)
			}
		}
		sort.SliceStable(members, func(x, y int) bool {
			return members[x].StartMinutes < members[y].StartMinutes
		})

		key := GroupKey(dayKey, members)
		if rendered[key] {
			continue
		}
		rendered[key] = true
		stacks = append(stacks, resolveStack(key, dayKey, members, state[key]))
	}
	return blocks, stacks
}
