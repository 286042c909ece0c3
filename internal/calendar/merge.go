package calendar

import (
	"context"
	"sort"
	"time"
)

// MergeCalendars fetches every calendar in ids and returns their events
// merged and sorted by start. Events are stamped with their calendar id and
// label. Any single failure fails the whole fetch so callers never see a
// partial result.
func MergeCalendars(ctx context.Context, lister EventLister, calendars []Calendar, ids []string, timeMin, timeMax time.Time) ([]Event, error) {
	labels := make(map[string]string, len(calendars))
	for _, c := range calendars {
		labels[c.ID] = c.Label
	}

	var all []Event
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		events, err := lister.ListEvents(ctx, id, timeMin, timeMax)
		if err != nil {
			return nil, err
		}
		label := labels[id]
		if label == "" {
			label = id
		}
		for _, ev := range events {
			ev.CalendarID = id
			ev.CalendarLabel = label
			all = append(all, ev)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return sortKey(all[i]).Before(sortKey(all[j]))
	})
	return all, nil
}

func sortKey(e Event) time.Time {
	if t, ok := e.StartTime(time.UTC); ok {
		return t
	}
	if d, err := time.Parse("2006-01-02", e.Start); err == nil {
		return d
	}
	return time.Time{}
}
