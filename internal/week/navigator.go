package week

import (
	"math"
	"time"

	"github.com/cinemacal/cinemacal/internal/layout"
)

// DefaultFirstHour is the first grid hour unless an earlier block needs room.
const DefaultFirstHour = 8

// Navigator tracks the displayed week.
type Navigator struct {
	ref              time.Time
	loc              *time.Location
	defaultFirstHour int
}

func NewNavigator(ref time.Time, loc *time.Location, defaultFirstHour int) *Navigator {
	if loc == nil {
		loc = time.Local
	}
	if defaultFirstHour < 0 || defaultFirstHour > 23 {
		defaultFirstHour = DefaultFirstHour
	}
	return &Navigator{ref: ref.In(loc), loc: loc, defaultFirstHour: defaultFirstHour}
}

// StartOf returns Sunday 00:00 of the week containing t.
func StartOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// Bounds returns [Sunday 00:00, next Sunday 00:00) of the displayed week.
func (n *Navigator) Bounds() (time.Time, time.Time) {
	start := StartOf(n.ref, n.loc)
	return start, start.AddDate(0, 0, 7)
}

func (n *Navigator) Start() time.Time {
	start, _ := n.Bounds()
	return start
}

func (n *Navigator) Reference() time.Time {
	return n.ref
}

func (n *Navigator) Next() {
	n.ref = n.ref.AddDate(0, 0, 7)
}

func (n *Navigator) Previous() {
	n.ref = n.ref.AddDate(0, 0, -7)
}

// Goto moves to the week containing date.
func (n *Navigator) Goto(date time.Time) {
	n.ref = date.In(n.loc)
}

// Contains reports whether t falls in the displayed week.
func (n *Navigator) Contains(t time.Time) bool {
	start, end := n.Bounds()
	return !t.Before(start) && t.Before(end)
}

// FirstHour is the earlier of the default first hour and the hour of the
// earliest block in l, so no block is clipped off the top of the grid.
func (n *Navigator) FirstHour(l layout.WeekLayout) int {
	earliest, ok := l.EarliestStart()
	if !ok {
		return n.defaultFirstHour
	}
	hour := int(math.Floor(earliest / 60))
	if hour < n.defaultFirstHour {
		return hour
	}
	return n.defaultFirstHour
}
