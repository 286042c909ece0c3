package screening

// Defaults for ExcludeRegular, matching the venue whose long-running titles
// swamp the listings.
const (
	RegularVenue        = "Coolidge Corner Theatre"
	RegularMinDays      = 5
	RegularMinShowtimes = 10
)

// ExcludeRegular drops screenings of titles at venue that play on at least
// minDays distinct dates or at least minShowtimes times. Other venues pass
// through untouched.
func ExcludeRegular(list []Screening, venue string, minDays, minShowtimes int) []Screening {
	type stats struct {
		days  map[string]bool
		count int
	}
	byTitle := make(map[string]*stats)
	for _, s := range list {
		if s.Venue != venue {
			continue
		}
		st := byTitle[s.Title]
		if st == nil {
			st = &stats{days: make(map[string]bool)}
			byTitle[s.Title] = st
		}
		st.days[s.DayKey()] = true
		st.count++
	}
	if len(byTitle) == 0 {
		return list
	}

	regular := make(map[string]bool)
	for title, st := range byTitle {
		if len(st.days) >= minDays || st.count >= minShowtimes {
			regular[title] = true
		}
	}

	out := make([]Screening, 0, len(list))
	for _, s := range list {
		if s.Venue == venue && regular[s.Title] {
			continue
		}
		out = append(out, s)
	}
	return out
}
