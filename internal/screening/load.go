package screening

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// screeningJSON is one entry of the scraper's JSON export.
type screeningJSON struct {
	Title             string   `json:"title"`
	Venue             string   `json:"venue"`
	Date              string   `json:"date"`
	Time              string   `json:"time"`
	SourceURL         string   `json:"source_url"`
	SourceSite        string   `json:"source_site"`
	RuntimeMinutes    *int     `json:"runtime_minutes,omitempty"`
	Director          string   `json:"director,omitempty"`
	Year              *int     `json:"year,omitempty"`
	Extra             string   `json:"extra,omitempty"`
	SpecialAttributes []string `json:"special_attributes,omitempty"`
	UniqueID          string   `json:"unique_id,omitempty"`
}

// LoadResult is the outcome of reading a screenings file.
type LoadResult struct {
	Screenings []Screening
	Skipped    int // entries with unparseable date or time
}

// Load reads a screenings file written by the scraper. The file is either
// a JSON array or an object with a "screenings" array.
func Load(path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("read screenings: %w", err)
	}
	return Parse(data)
}

// Parse decodes the scraper JSON export.
func Parse(data []byte) (LoadResult, error) {
	var entries []screeningJSON

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return LoadResult{}, nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return LoadResult{}, fmt.Errorf("failed to parse screenings JSON: %w", err)
		}
	} else {
		var wrapper struct {
			Screenings []screeningJSON `json:"screenings"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return LoadResult{}, fmt.Errorf("failed to parse screenings JSON: %w", err)
		}
		entries = wrapper.Screenings
	}

	result := LoadResult{Screenings: make([]Screening, 0, len(entries))}
	for _, entry := range entries {
		s, err := entry.toScreening()
		if err != nil {
			result.Skipped++
			continue
		}
		result.Screenings = append(result.Screenings, s)
	}
	return result, nil
}

func (e screeningJSON) toScreening() (Screening, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(e.Date))
	if err != nil {
		return Screening{}, fmt.Errorf("bad date %q: %w", e.Date, err)
	}
	clock, err := ParseClock(e.Time)
	if err != nil {
		return Screening{}, err
	}

	return Screening{
		UniqueID:       e.UniqueID,
		Title:          e.Title,
		Venue:          e.Venue,
		Date:           date,
		Clock:          clock,
		SourceURL:      e.SourceURL,
		SourceSite:     e.SourceSite,
		RuntimeMinutes: e.RuntimeMinutes,
		Director:       e.Director,
		Year:           e.Year,
		Extra:          e.Extra,
		Tags:           e.SpecialAttributes,
	}, nil
}

// ParseClock accepts HH:MM:SS or HH:MM.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return Clock{}, fmt.Errorf("bad time %q", s)
}
