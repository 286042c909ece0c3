package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cinemacal/cinemacal/internal/layout"
	"github.com/cinemacal/cinemacal/internal/parser"
	"github.com/spf13/cobra"
)

var listWeek string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print a week's layout and exit",
	Long: `Print the screenings and calendar events of a week as text, with
overlapping screenings grouped the way the week view stacks them.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listWeek, "week", "w", "", "Any date in the week to print (default: this week)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	// Ensure config is loaded
	if cfg == nil {
		initConfig()
	}

	date := time.Now()
	if listWeek != "" {
		parsed, err := parser.NewDateParser(cfg.Location).Parse(listWeek)
		if err != nil {
			return fmt.Errorf("invalid --week: %w", err)
		}
		date = parsed
	}

	backend, err := newBackend(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	eng := newEngine(cfg, backend)

	list, _, err := loadScreenings(cfg)
	if err != nil {
		return err
	}
	eng.SetScreenings(list)

	if backend != nil {
		if err := eng.LoadCalendars(cmd.Context()); err != nil {
			return fmt.Errorf("error loading calendars: %w", err)
		}
	}
	if err := eng.GotoWeek(cmd.Context(), date); err != nil {
		return fmt.Errorf("error fetching events: %w", err)
	}

	printWeek(os.Stdout, eng.Layout())
	return nil
}

// printWeek writes a plain-text rendering of a computed week.
func printWeek(w io.Writer, week layout.WeekLayout) {
	end := week.WeekStart.AddDate(0, 0, 6)
	fmt.Fprintf(w, "Week of %s - %s\n", week.WeekStart.Format("Mon Jan 2"), end.Format("Mon Jan 2, 2006"))

	if week.Empty() {
		fmt.Fprintln(w, "No screenings or events this week.")
		return
	}

	for _, day := range week.Days {
		if len(day.Blocks) == 0 && len(day.Stacks) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", day.Date.Format("Monday, January 2"))

		blocks, stacks := day.Blocks, day.Stacks
		for len(blocks) > 0 || len(stacks) > 0 {
			if len(stacks) == 0 || (len(blocks) > 0 && blocks[0].StartMinutes <= stacks[0].StartMinutes) {
				fmt.Fprintf(w, "  %s\n", blockLine(blocks[0]))
				blocks = blocks[1:]
				continue
			}
			s := stacks[0]
			stacks = stacks[1:]
			fmt.Fprintf(w, "  %s-%s  %d overlapping:\n", clock(s.StartMinutes), clock(s.EndMinutes), len(s.Members))
			// top of the stack first
			for i := len(s.Order) - 1; i >= 0; i-- {
				member := s.Order[i]
				mark := "   "
				if member == s.Primary {
					mark = " * "
				}
				fmt.Fprintf(w, "  %s%s\n", mark, blockLine(s.Members[member]))
			}
		}
	}
}

func blockLine(b layout.Block) string {
	line := fmt.Sprintf("%s-%s  %s", clock(b.StartMinutes), clock(b.EndMinutes), b.Title)
	if b.Subtitle != "" {
		line += "  (" + b.Subtitle + ")"
	}
	if b.OnCalendar {
		line += "  [on calendar]"
	}
	return line
}

func clock(minutes float64) string {
	total := int(minutes)
	return fmt.Sprintf("%02d:%02d", (total/60)%24, total%60)
}
