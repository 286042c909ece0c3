package screening

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// DefaultDurationMinutes is used when a screening has no runtime.
const DefaultDurationMinutes = 120

// Screening is a single scraped showtime. Provenance fields are carried
// for display only.
type Screening struct {
	UniqueID       string
	Title          string
	Venue          string
	Date           time.Time // midnight of the screening day
	Clock          Clock     // local wall-clock start
	SourceURL      string
	SourceSite     string
	RuntimeMinutes *int
	Director       string
	Year           *int
	Extra          string
	Tags           []string
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

func (c Clock) String() string {
	return time.Date(0, 1, 1, c.Hour, c.Minute, c.Second, 0, time.UTC).Format("15:04:05")
}

// ID returns the stable identifier of the screening. A scraper-supplied
// unique_id wins; otherwise it is derived from title, venue, date and time.
func (s Screening) ID() string {
	if s.UniqueID != "" {
		return s.UniqueID
	}
	key := s.Title + "|" + s.Venue + "|" + s.Date.Format("2006-01-02") + "|" + s.Clock.String()
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])[:12]
}

// Start returns the start instant in loc.
func (s Screening) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), s.Clock.Hour, s.Clock.Minute, s.Clock.Second, 0, loc)
}

// DurationMinutes returns the runtime, or def when the runtime is unknown.
func (s Screening) DurationMinutes(def int) int {
	if s.RuntimeMinutes != nil && *s.RuntimeMinutes > 0 {
		return *s.RuntimeMinutes
	}
	return def
}

// DayKey is the calendar date of the screening as YYYY-MM-DD.
func (s Screening) DayKey() string {
	return s.Date.Format("2006-01-02")
}

func (s Screening) IsDoubleFeature() bool {
	for _, tag := range s.Tags {
		if tag == "Double feature" {
			return true
		}
	}
	return false
}

// FormatTags renders format-style tags (35mm, 70mm, "Screening on film")
// as a title suffix like " (35mm, Screening on film)".
func (s Screening) FormatTags() string {
	var formats []string
	for _, tag := range s.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if isGaugeTag(tag) || tag == "Screening on film" {
			formats = append(formats, tag)
		}
	}
	if len(formats) == 0 {
		return ""
	}
	return " (" + strings.Join(formats, ", ") + ")"
}

func isGaugeTag(tag string) bool {
	if !strings.HasSuffix(tag, "mm") || len(tag) > 5 || len(tag) <= 2 {
		return false
	}
	for _, r := range tag[:len(tag)-2] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SortByStart orders screenings by date, time, then title.
func SortByStart(list []Screening) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Clock != b.Clock {
			return a.Clock.seconds() < b.Clock.seconds()
		}
		return a.Title < b.Title
	})
}

func (c Clock) seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

var venueAddresses = []struct {
	name    string
	address string
}{
	{"The Brattle", "40 Brattle St, Cambridge, MA 02138"},
	{"Coolidge Corner Theatre", "290 Harvard St, Brookline, MA 02446"},
	{"Harvard Film Archive", "24 Quincy St, Cambridge, MA 02138"},
	{"Somerville Theatre", "55 Davis Square, Somerville, MA 02144"},
	{"West Newton Cinema", "1296 Washington St, West Newton, MA 02465"},
	{"Museum of Fine Arts", "465 Huntington Ave, Boston, MA 02115"},
	{"Capitol Theatre", "204 Massachusetts Ave, Arlington, MA 02474"},
}

// VenueAddress looks up a street address, matching either name as a
// case-insensitive substring of the other.
func VenueAddress(venue string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(venue))
	if v == "" {
		return "", false
	}
	for _, entry := range venueAddresses {
		name := strings.ToLower(entry.name)
		if strings.Contains(v, name) || strings.Contains(name, v) {
			return entry.address, true
		}
	}
	return "", false
}
