package calsync

import (
	"sort"
	"sync"
	"time"
)

// RangeCache remembers the window and calendar selection of the last
// successful event fetch.
type RangeCache struct {
	mu          sync.RWMutex
	valid       bool
	timeMin     time.Time
	timeMax     time.Time
	calendarIDs []string
}

// IsCovered reports whether the cached window contains [start, end) and
// was fetched for exactly the same calendars.
func (c *RangeCache) IsCovered(start, end time.Time, calendarIDs []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid {
		return false
	}
	if start.Before(c.timeMin) || end.After(c.timeMax) {
		return false
	}
	return sameIDs(c.calendarIDs, calendarIDs)
}

// Refresh replaces the cached window wholesale.
func (c *RangeCache) Refresh(start, end time.Time, calendarIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = true
	c.timeMin = start
	c.timeMax = end
	c.calendarIDs = normalizeIDs(calendarIDs)
}

func (c *RangeCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.calendarIDs = nil
}

// Bounds returns the cached window.
func (c *RangeCache) Bounds() (time.Time, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeMin, c.timeMax, c.valid
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func sameIDs(cached, ids []string) bool {
	norm := normalizeIDs(ids)
	if len(norm) != len(cached) {
		return false
	}
	for i := range norm {
		if norm[i] != cached[i] {
			return false
		}
	}
	return true
}
