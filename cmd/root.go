package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/cinemacal/cinemacal/internal/calendar"
	"github.com/cinemacal/cinemacal/internal/config"
	"github.com/cinemacal/cinemacal/internal/engine"
	"github.com/cinemacal/cinemacal/internal/log"
	"github.com/cinemacal/cinemacal/internal/prefs"
	"github.com/cinemacal/cinemacal/internal/scheduler"
	"github.com/cinemacal/cinemacal/internal/screening"
	"github.com/cinemacal/cinemacal/internal/ui"
	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	cfgFile        string
	screeningsFile string
	backendName    string
	cfg            *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cinemacal",
	Short: "A terminal week view of repertory cinema screenings",
	Long: `cinemacal lays out a week of scraped cinema screenings next to the
events already on your calendars, and adds or removes screenings on a
Google or CalDAV calendar.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default: search the standard locations)")
	rootCmd.PersistentFlags().StringVarP(&screeningsFile, "file", "f", "", "Screenings JSON file")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Calendar backend: google, caldav or none")
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if screeningsFile != "" {
		cfg.ScreeningsFile = screeningsFile
	}
	if backendName != "" {
		if err := cfg.Set("backend", backendName); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --backend: %v\n", err)
			os.Exit(1)
		}
	}
	log.SetLevel(cfg.LogLevel)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Log output would corrupt the alternate screen.
	closeLog, err := setupTUILogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	backend, err := newBackend(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	eng := newEngine(cfg, backend)

	list, skipped, err := loadScreenings(cfg)
	if err != nil {
		return err
	}
	eng.SetScreenings(list)
	log.Info("starting", "screenings", len(list), "skipped", skipped, "backend", cfg.Backend)

	model := ui.NewModel(cfg, eng)
	p := tea.NewProgram(model, tea.WithMouseCellMotion())

	watcher, err := screening.NewWatcher(cfg.ScreeningsFile, func(string) {
		list, skipped, err := loadScreenings(cfg)
		p.Send(ui.ScreeningsMsg{Screenings: list, Skipped: skipped, Err: err})
	})
	if err != nil {
		log.Error("cannot watch screenings file", err, "path", cfg.ScreeningsFile)
	} else {
		defer watcher.Close()
	}

	if backend != nil {
		sched, err := scheduler.New(cfg.RefreshCron, cfg.Location, func() {
			p.Send(ui.RefreshMsg{})
		})
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func setupTUILogging(cfg *config.Config) (func(), error) {
	if cfg.LogFile == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := tea.LogToFile(cfg.LogFile, "")
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return func() { f.Close() }, nil
}

// newBackend returns nil when no backend is configured.
func newBackend(ctx context.Context, cfg *config.Config) (calendar.Backend, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := calendar.Options{
		CalendarID:     cfg.GoogleCalendarID,
		TargetName:     cfg.TargetCalendar,
		Location:       cfg.Location,
		DefaultMinutes: cfg.ScreeningMinutes,
	}

	switch cfg.Backend {
	case "google":
		if cfg.GoogleCredentials == "" {
			return nil, errors.New("google backend needs google_credentials")
		}
		b, err := calendar.NewGoogleBackend(ctx, cfg.GoogleCredentials, opts)
		if err != nil {
			return nil, err
		}
		return b, nil

	case "caldav":
		if cfg.CalDAVURL == "" {
			return nil, errors.New("caldav backend needs caldav_url")
		}
		b, err := calendar.NewCalDAVBackend(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, nil
}

func newEngine(cfg *config.Config, backend calendar.Backend) *engine.Engine {
	return engine.New(backend, prefs.NewStore(cfg.PrefsFile), engine.Options{
		Location:         cfg.Location,
		WindowDays:       cfg.WindowDays,
		FirstHour:        cfg.FirstHour,
		ScreeningMinutes: cfg.ScreeningMinutes,
		EventMinutes:     cfg.EventMinutes,
	})
}

// loadScreenings reads the screenings file. A missing file is an empty
// result set, not an error.
func loadScreenings(cfg *config.Config) ([]screening.Screening, int, error) {
	res, err := screening.Load(cfg.ScreeningsFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info("no screenings file", "path", cfg.ScreeningsFile)
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	list := res.Screenings
	if cfg.ExcludeRegular {
		list = screening.ExcludeRegular(list, screening.RegularVenue, screening.RegularMinDays, screening.RegularMinShowtimes)
	}
	if res.Skipped > 0 {
		log.Info("skipped malformed screenings", "count", res.Skipped)
	}
	return list, res.Skipped, nil
}
