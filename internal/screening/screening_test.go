package screening

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestScreeningID(t *testing.T) {
	s := Screening{
		Title: "Seven Samurai",
		Venue: "The Brattle",
		Date:  mustDate(t, "2025-03-14"),
		Clock: Clock{Hour: 19, Minute: 30},
	}

	id := s.ID()
	if len(id) != 12 {
		t.Fatalf("expected 12-char id, got %q", id)
	}
	if id != s.ID() {
		t.Error("ID should be deterministic")
	}

	other := s
	other.Clock = Clock{Hour: 21}
	if other.ID() == id {
		t.Error("different showtimes should have different ids")
	}

	withUnique := s
	withUnique.UniqueID = "brattle-123"
	if withUnique.ID() != "brattle-123" {
		t.Errorf("expected unique_id to win, got %q", withUnique.ID())
	}
}

func TestDurationMinutes(t *testing.T) {
	tests := []struct {
		name    string
		runtime *int
		want    int
	}{
		{"unknown runtime", nil, 120},
		{"zero runtime", intPtr(0), 120},
		{"known runtime", intPtr(207), 207},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Screening{RuntimeMinutes: tt.runtime}
			if got := s.DurationMinutes(DefaultDurationMinutes); got != tt.want {
				t.Errorf("DurationMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatTags(t *testing.T) {
	tests := []struct {
		tags []string
		want string
	}{
		{nil, ""},
		{[]string{"Double feature"}, ""},
		{[]string{"35mm"}, " (35mm)"},
		{[]string{"70mm", "Screening on film", "Q&A"}, " (70mm, Screening on film)"},
		{[]string{"xxmm"}, ""},
	}
	for _, tt := range tests {
		s := Screening{Tags: tt.tags}
		if got := s.FormatTags(); got != tt.want {
			t.Errorf("FormatTags(%v) = %q, want %q", tt.tags, got, tt.want)
		}
	}
}

func TestVenueAddress(t *testing.T) {
	if addr, ok := VenueAddress("Brattle"); !ok || addr != "40 Brattle St, Cambridge, MA 02138" {
		t.Errorf("unexpected address %q (%v)", addr, ok)
	}
	if _, ok := VenueAddress("Nowhere Cinema"); ok {
		t.Error("unknown venue should not match")
	}
	if _, ok := VenueAddress(""); ok {
		t.Error("empty venue should not match")
	}
}

func TestParse(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		data := []byte(`[
			{"title": "Alien", "venue": "The Brattle", "date": "2025-03-14", "time": "19:30:00", "runtime_minutes": 117},
			{"title": "Broken", "venue": "The Brattle", "date": "not-a-date", "time": "19:30:00"}
		]`)
		result, err := Parse(data)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if len(result.Screenings) != 1 || result.Skipped != 1 {
			t.Fatalf("got %d screenings, %d skipped", len(result.Screenings), result.Skipped)
		}
		s := result.Screenings[0]
		if s.Title != "Alien" || s.Clock != (Clock{Hour: 19, Minute: 30}) || *s.RuntimeMinutes != 117 {
			t.Errorf("unexpected screening %+v", s)
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		data := []byte(`{"screenings": [{"title": "Ran", "venue": "HFA", "date": "2025-03-15", "time": "14:00", "special_attributes": ["35mm"]}]}`)
		result, err := Parse(data)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if len(result.Screenings) != 1 {
			t.Fatalf("expected 1 screening, got %d", len(result.Screenings))
		}
		if result.Screenings[0].FormatTags() != " (35mm)" {
			t.Errorf("tags not carried: %+v", result.Screenings[0].Tags)
		}
	})

	t.Run("empty", func(t *testing.T) {
		result, err := Parse([]byte("  "))
		if err != nil || len(result.Screenings) != 0 {
			t.Errorf("expected empty result, got %+v, %v", result, err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := Parse([]byte("{nope")); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenings.json")
	if err := os.WriteFile(path, []byte(`[{"title": "Alien", "venue": "X", "date": "2025-03-14", "time": "19:30:00"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	result, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(result.Screenings) != 1 {
		t.Errorf("expected 1 screening, got %d", len(result.Screenings))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExcludeRegular(t *testing.T) {
	var list []Screening
	for day := 1; day <= 5; day++ {
		list = append(list, Screening{
			Title: "Long Run",
			Venue: RegularVenue,
			Date:  time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
			Clock: Clock{Hour: 19},
		})
	}
	list = append(list,
		Screening{Title: "One Night", Venue: RegularVenue, Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), Clock: Clock{Hour: 21}},
		Screening{Title: "Long Run", Venue: "The Brattle", Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), Clock: Clock{Hour: 21}},
	)

	got := ExcludeRegular(list, RegularVenue, RegularMinDays, RegularMinShowtimes)
	if len(got) != 2 {
		t.Fatalf("expected 2 screenings to survive, got %d", len(got))
	}
	for _, s := range got {
		if s.Venue == RegularVenue && s.Title == "Long Run" {
			t.Error("regular title should have been dropped")
		}
	}
}

func TestSortByStart(t *testing.T) {
	d := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	list := []Screening{
		{Title: "B", Date: d, Clock: Clock{Hour: 20}},
		{Title: "A", Date: d.AddDate(0, 0, -1), Clock: Clock{Hour: 22}},
		{Title: "C", Date: d, Clock: Clock{Hour: 13}},
	}
	SortByStart(list)
	if list[0].Title != "A" || list[1].Title != "C" || list[2].Title != "B" {
		t.Errorf("unexpected order: %s %s %s", list[0].Title, list[1].Title, list[2].Title)
	}
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "screenings.json")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan string, 4)
	w, err := NewWatcher(path, func(p string) { changed <- p })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte(`[{"title":"x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected change notification")
	}
}
