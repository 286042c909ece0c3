package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cinemacal/cinemacal/internal/log"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TargetCalendar != "Movie Screenings" {
		t.Errorf("Wrong default target calendar: %s", cfg.TargetCalendar)
	}

	if cfg.WindowDays != 30 {
		t.Errorf("Wrong default window: %d", cfg.WindowDays)
	}

	if cfg.FirstHour != 8 || cfg.ScreeningMinutes != 120 || cfg.EventMinutes != 60 {
		t.Errorf("Wrong layout defaults: %+v", cfg)
	}

	if cfg.TimeIncrement != 30 {
		t.Errorf("Wrong default time increment: %d", cfg.TimeIncrement)
	}

	if cfg.RefreshCron != "*/15 * * * *" {
		t.Errorf("Wrong default refresh cron: %s", cfg.RefreshCron)
	}

	if cfg.Backend != "" {
		t.Errorf("No backend should be configured by default, got %s", cfg.Backend)
	}

	if cfg.KeyBindings["q"] != "quit" {
		t.Errorf("Wrong quit key binding: %s", cfg.KeyBindings["q"])
	}
}

func TestParseLine(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		line     string
		check    func(*Config) bool
		hasError bool
	}{
		{
			line: "set backend caldav",
			check: func(c *Config) bool {
				return c.Backend == "caldav"
			},
		},
		{
			line: `set target_calendar "Film Nights"`,
			check: func(c *Config) bool {
				return c.TargetCalendar == "Film Nights"
			},
		},
		{
			line: "set exclude_regular true",
			check: func(c *Config) bool {
				return c.ExcludeRegular
			},
		},
		{
			line: "set refresh_cron 0 * * * *",
			check: func(c *Config) bool {
				return c.RefreshCron == "0 * * * *"
			},
		},
		{
			line: "bind x add",
			check: func(c *Config) bool {
				return c.KeyBindings["x"] == "add"
			},
		},
		{
			line: "color linked 2",
			check: func(c *Config) bool {
				return c.Colors["linked"] == "2"
			},
		},
		{
			line:     "invalid command",
			hasError: true,
		},
		{
			line:     "# comment line",
			hasError: false,
		},
		{
			line:     "",
			hasError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			err := cfg.parseLine(tt.line)

			if tt.hasError && err == nil {
				t.Error("Expected error but got none")
			}

			if !tt.hasError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Check failed for line: %s", tt.line)
			}
		})
	}
}

func TestSetVariable(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		value    string
		check    func(*Config) bool
		hasError bool
	}{
		{
			name:  "screenings_file",
			value: "~/films/screenings.json",
			check: func(c *Config) bool {
				return c.ScreeningsFile == filepath.Join(home, "films", "screenings.json")
			},
		},
		{
			name:  "timezone",
			value: "UTC",
			check: func(c *Config) bool {
				return c.Location.String() == "UTC"
			},
		},
		{name: "timezone", value: "Mars/Olympus_Mons", hasError: true},
		{
			name:  "window_days",
			value: "45",
			check: func(c *Config) bool {
				return c.WindowDays == 45
			},
		},
		{name: "window_days", value: "zero", hasError: true},
		{name: "first_hour", value: "24", hasError: true},
		{
			name:  "time_increment",
			value: "15",
			check: func(c *Config) bool {
				return c.TimeIncrement == 15
			},
		},
		{name: "time_increment", value: "20", hasError: true},
		{name: "backend", value: "outlook", hasError: true},
		{name: "refresh_cron", value: "whenever", hasError: true},
		{
			name:  "refresh_cron",
			value: "",
			check: func(c *Config) bool {
				return c.RefreshCron == ""
			},
		},
		{
			name:  "log_level",
			value: "debug",
			check: func(c *Config) bool {
				return c.LogLevel == log.LevelDebug
			},
		},
		{name: "log_level", value: "chatty", hasError: true},
		{name: "unknown_variable", value: "x", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.setVariable(tt.name, tt.value)

			if tt.hasError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Check failed for %s %s", tt.name, tt.value)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cinemacalrc")

	content := `# cinemacal configuration
set screenings_file /tmp/screenings.json
set backend google
set google_credentials /tmp/creds.json
set window_days 14
set peek_width 4

bind w next_week
color screening 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.ScreeningsFile != "/tmp/screenings.json" {
		t.Errorf("Wrong screenings file: %s", cfg.ScreeningsFile)
	}
	if cfg.Backend != "google" || cfg.GoogleCredentials != "/tmp/creds.json" {
		t.Errorf("Wrong backend settings: %s %s", cfg.Backend, cfg.GoogleCredentials)
	}
	if cfg.WindowDays != 14 || cfg.PeekWidth != 4 {
		t.Errorf("Wrong numbers: window=%d peek=%d", cfg.WindowDays, cfg.PeekWidth)
	}
	if cfg.KeyBindings["w"] != "next_week" || cfg.Colors["screening"] != "4" {
		t.Error("bind/color lines not applied")
	}
}

func TestLoadFromFileReportsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cinemacalrc")
	if err := os.WriteFile(path, []byte("set window_days 7\n\nset first_hour noon\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("Error should name the line: %v", err)
	}
}

func TestLoadConfigSearchPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom")
	if err := os.WriteFile(path, []byte("set event_minutes 45\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CINEMACAL_CONFIG", path)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	if got := SearchPaths()[0]; got != path {
		t.Errorf("CINEMACAL_CONFIG should come first, got %s", got)
	}

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.EventMinutes != 45 {
		t.Errorf("Expected env config to load, got event_minutes=%d", cfg.EventMinutes)
	}
}

func TestKeyFor(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.KeyFor("next_week"); got != "J" {
		t.Errorf("KeyFor(next_week) = %q, want J", got)
	}
	if got := cfg.KeyFor("nothing"); got != "" {
		t.Errorf("KeyFor(nothing) = %q", got)
	}
}
