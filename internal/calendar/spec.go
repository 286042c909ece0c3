package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/cinemacal/cinemacal/internal/screening"
)

// EventSpec describes the calendar event created for a screening.
type EventSpec struct {
	Summary      string
	Start        time.Time
	End          time.Time
	Location     string
	Description  string
	ScreeningRef string
}

// SpecFor builds the event description for s. The event ends ten minutes
// after the runtime, twenty for double features.
func SpecFor(s screening.Screening, loc *time.Location, defaultMinutes int) EventSpec {
	start := s.Start(loc)
	buffer := 10
	if s.IsDoubleFeature() {
		buffer = 20
	}
	end := start.Add(time.Duration(s.DurationMinutes(defaultMinutes)+buffer) * time.Minute)

	location := s.Venue
	if addr, ok := screening.VenueAddress(s.Venue); ok {
		location = s.Venue + ", " + addr
	}

	return EventSpec{
		Summary:      fmt.Sprintf("%s @ %s%s", s.Title, s.Venue, s.FormatTags()),
		Start:        start,
		End:          end,
		Location:     location,
		Description:  describe(s),
		ScreeningRef: s.ID(),
	}
}

func describe(s screening.Screening) string {
	var lines []string
	if s.Director != "" {
		lines = append(lines, "Director: "+s.Director)
	}
	if s.Year != nil {
		lines = append(lines, fmt.Sprintf("Year: %d", *s.Year))
	}
	if s.RuntimeMinutes != nil && *s.RuntimeMinutes > 0 {
		lines = append(lines, fmt.Sprintf("Runtime: %d min", *s.RuntimeMinutes))
	}
	if len(s.Tags) > 0 {
		lines = append(lines, "Special: "+strings.Join(s.Tags, ", "))
	}
	if s.Extra != "" {
		lines = append(lines, "Notes: "+s.Extra)
	}
	if s.SourceSite != "" {
		lines = append(lines, "Source: "+s.SourceSite)
	}
	if s.SourceURL != "" {
		lines = append(lines, s.SourceURL)
	}
	return strings.Join(lines, "\n")
}
