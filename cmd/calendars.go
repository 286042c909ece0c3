package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cinemacal/cinemacal/internal/engine"
	"github.com/spf13/cobra"
)

var toggleIDs []string

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List calendars and choose which are shown",
	Long: `List the calendars of the configured backend. Selected calendars are
marked [x]; --toggle flips a calendar's selection and saves it.`,
	RunE: runCalendars,
}

func init() {
	calendarsCmd.Flags().StringSliceVarP(&toggleIDs, "toggle", "t", nil, "Calendar id to toggle (can be specified multiple times)")
	rootCmd.AddCommand(calendarsCmd)
}

func runCalendars(cmd *cobra.Command, args []string) error {
	if cfg == nil {
		initConfig()
	}

	backend, err := newBackend(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if backend == nil {
		return errors.New("no calendar backend configured (set backend in the config file or pass --backend)")
	}

	eng := newEngine(cfg, backend)
	if err := eng.LoadCalendars(cmd.Context()); err != nil {
		return fmt.Errorf("error loading calendars: %w", err)
	}

	for _, id := range toggleIDs {
		if !hasCalendar(eng.Calendars(), id) {
			return fmt.Errorf("unknown calendar: %s", id)
		}
		if err := eng.ToggleCalendar(id); err != nil {
			return err
		}
	}

	printCalendars(os.Stdout, eng.Calendars())
	return nil
}

func hasCalendar(choices []engine.CalendarChoice, id string) bool {
	for _, c := range choices {
		if c.ID == id {
			return true
		}
	}
	return false
}

func printCalendars(w io.Writer, choices []engine.CalendarChoice) {
	if len(choices) == 0 {
		fmt.Fprintln(w, "No calendars found.")
		return
	}
	for _, c := range choices {
		mark := "[ ]"
		if c.Selected {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s  %s", mark, c.Label, c.ID)
		if c.Target {
			line += "  (new screenings)"
		}
		fmt.Fprintln(w, line)
	}
}
