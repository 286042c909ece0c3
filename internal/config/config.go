package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cinemacal/cinemacal/internal/log"
	"github.com/cinemacal/cinemacal/internal/scheduler"
)

var (
	setRe   = regexp.MustCompile(`^set\s+(\w+)\s+(.*)$`)
	bindRe  = regexp.MustCompile(`^bind\s+(\S+)\s+(\S+)$`)
	colorRe = regexp.MustCompile(`^color\s+(\w+)\s+(.+)$`)
)

type Config struct {
	// File settings
	ScreeningsFile string
	PrefsFile      string
	LogFile        string
	LogLevel       log.Level

	// Calendar backend
	Backend           string
	GoogleCredentials string
	GoogleCalendarID  string
	TargetCalendar    string
	CalDAVURL         string
	CalDAVUsername    string
	CalDAVPassword    string

	// Time and layout
	Location         *time.Location
	WindowDays       int
	FirstHour        int
	ScreeningMinutes int
	EventMinutes     int
	PeekWidth        int
	TimeIncrement    int

	// Behavior settings
	RefreshCron    string
	ExcludeRegular bool

	// UI settings
	Colors      map[string]string
	KeyBindings map[string]string // key -> action
}

func DefaultConfig() *Config {
	dataDir := filepath.Join(homeDir(), ".local", "share", "cinemacal")
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.Local
	}

	return &Config{
		ScreeningsFile: filepath.Join(dataDir, "screenings.json"),
		PrefsFile:      filepath.Join(configDir(), "prefs.yaml"),
		LogLevel:       log.LevelInfo,

		Backend:        "",
		TargetCalendar: "Movie Screenings",

		Location:         loc,
		WindowDays:       30,
		FirstHour:        8,
		ScreeningMinutes: 120,
		EventMinutes:     60,
		PeekWidth:        3,
		TimeIncrement:    30,

		RefreshCron: scheduler.DefaultRefreshSpec,

		Colors: map[string]string{
			"screening": "12",
			"linked":    "10",
			"external":  "8",
			"pending":   "11",
			"focused":   "15",
			"today":     "3",
			"header":    "7",
			"error":     "9",
		},

		KeyBindings: map[string]string{
			"q": "quit",
			"?": "help",
			"t": "today",
			"r": "refresh",
			"g": "goto_date",
			"c": "calendars",

			"n": "next_week",
			"p": "prev_week",
			"J": "next_week",
			"K": "prev_week",

			"tab":       "focus_next",
			"shift+tab": "focus_prev",
			"l":         "focus_next",
			"h":         "focus_prev",
			"j":         "member_next",
			"k":         "member_prev",
			"enter":     "promote",

			"a": "add",
			"d": "remove",
			"+": "zoom_in",
			"-": "zoom_out",

			"down": "scroll_down",
			"up":   "scroll_up",
		},
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cinemacal")
	}
	return filepath.Join(homeDir(), ".config", "cinemacal")
}

// SearchPaths lists the rc file locations in priority order.
func SearchPaths() []string {
	var paths []string
	if env := os.Getenv("CINEMACAL_CONFIG"); env != "" {
		paths = append(paths, env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "cinemacal", "cinemacalrc"))
	}
	home := homeDir()
	return append(paths,
		filepath.Join(home, ".config", "cinemacal", "cinemacalrc"),
		filepath.Join(home, ".cinemacalrc"),
	)
}

// LoadConfig reads the first rc file found, or the given path when set.
// A missing explicit path is an error; missing search paths are skipped.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if err := config.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("error loading config from %s: %w", path, err)
		}
		return config, nil
	}

	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			if err := config.loadFromFile(p); err != nil {
				return nil, fmt.Errorf("error loading config from %s: %w", p, err)
			}
			break
		}
	}

	return config, nil
}

func (c *Config) loadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := c.parseLine(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	return scanner.Err()
}

func (c *Config) parseLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	if matches := setRe.FindStringSubmatch(line); matches != nil {
		return c.setVariable(matches[1], strings.TrimSpace(matches[2]))
	}

	if matches := bindRe.FindStringSubmatch(line); matches != nil {
		c.KeyBindings[matches[1]] = matches[2]
		return nil
	}

	if matches := colorRe.FindStringSubmatch(line); matches != nil {
		c.Colors[matches[1]] = strings.Trim(matches[2], `"'`)
		return nil
	}

	return fmt.Errorf("unknown config line: %s", line)
}

// Set applies one "set" variable, as from a command-line override.
func (c *Config) Set(name, value string) error {
	return c.setVariable(name, value)
}

func (c *Config) setVariable(name, value string) error {
	// Remove quotes if present
	value = strings.Trim(value, `"'`)

	switch name {
	case "screenings_file":
		c.ScreeningsFile = expandHome(value)

	case "prefs_file":
		c.PrefsFile = expandHome(value)

	case "log_file":
		c.LogFile = expandHome(value)

	case "log_level":
		level, err := log.ParseLevel(value)
		if err != nil {
			return err
		}
		c.LogLevel = level

	case "backend":
		switch strings.ToLower(value) {
		case "", "none":
			c.Backend = ""
		case "google", "caldav":
			c.Backend = strings.ToLower(value)
		default:
			return fmt.Errorf("invalid backend: %s", value)
		}

	case "google_credentials":
		c.GoogleCredentials = expandHome(value)

	case "google_calendar_id":
		c.GoogleCalendarID = value

	case "target_calendar":
		c.TargetCalendar = value

	case "caldav_url":
		c.CalDAVURL = value

	case "caldav_username":
		c.CalDAVUsername = value

	case "caldav_password":
		c.CalDAVPassword = value

	case "timezone":
		loc, err := time.LoadLocation(value)
		if err != nil {
			return fmt.Errorf("invalid timezone: %s", value)
		}
		c.Location = loc

	case "window_days":
		return setInt(&c.WindowDays, name, value, 1, 366)

	case "first_hour":
		return setInt(&c.FirstHour, name, value, 0, 23)

	case "screening_minutes":
		return setInt(&c.ScreeningMinutes, name, value, 1, 24*60)

	case "event_minutes":
		return setInt(&c.EventMinutes, name, value, 1, 24*60)

	case "peek_width":
		return setInt(&c.PeekWidth, name, value, 1, 20)

	case "time_increment":
		inc, err := strconv.Atoi(value)
		if err != nil || (inc != 15 && inc != 30 && inc != 60) {
			return fmt.Errorf("invalid time_increment: %s (must be 15, 30, or 60)", value)
		}
		c.TimeIncrement = inc

	case "refresh_cron":
		if err := scheduler.Validate(value); err != nil {
			return err
		}
		c.RefreshCron = value

	case "exclude_regular":
		c.ExcludeRegular = strings.ToLower(value) == "true" || value == "1"

	default:
		return fmt.Errorf("unknown config variable: %s", name)
	}

	return nil
}

func setInt(dst *int, name, value string, min, max int) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < min || n > max {
		return fmt.Errorf("invalid %s: %s", name, value)
	}
	*dst = n
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// KeyFor returns a key bound to action, for help text.
func (c *Config) KeyFor(action string) string {
	var keys []string
	for key, a := range c.KeyBindings {
		if a == action {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	// shortest key reads best in the status bar
	best := keys[0]
	for _, k := range keys[1:] {
		if len(k) < len(best) || (len(k) == len(best) && k < best) {
			best = k
		}
	}
	return best
}
