package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jpcc/flock/internal/input"
	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/normalize"
	"github.com/jpcc/flock/internal/output"
	"github.com/jpcc/flock/internal/tui/attendance"
)

func newAttendanceCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attendance",
		Aliases: []string{"att", "a"},
		Short:   "Mark and review weekly attendance",
		GroupID: "attendance",
	}
	cmd.AddCommand(
		newAttendanceMarkCmd(opts),
		newAttendanceShowCmd(opts),
		newAutoAbsentCmd(opts),
		newAttendanceTUICmd(opts),
	)
	return cmd
}

// dateFlag registers the shared --date/-d flag
func dateFlag(fs *pflag.FlagSet, p *string) {
	fs.StringVarP(p, "date", "d", "", "attendance date (default today)")
}

// resolveDate turns a --date value into YYYY-MM-DD; empty means today.
func resolveDate(raw string) (string, error) {
	if raw == "" {
		raw = "today"
	}
	d, err := normalize.ParseDate(raw)
	if err != nil {
		return "", fmt.Errorf("--date: %w", err)
	}
	return d, nil
}

func newAttendanceMarkCmd(opts *globalOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "mark <member-id>... <present|absent>",
		Short: "Mark members present or absent",
		Long: `Mark one or more members present or absent. An earlier mark for the
same date is replaced. Ids may come from stdin (-) or a file (@path).

Examples:
  flock attendance mark 12 present
  flock attendance mark 12 14 15 absent --date 2026-02-15
  flock attendance mark @sunday.txt present`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := models.NormalizeStatus(args[len(args)-1])
			if !ok {
				return fmt.Errorf("status must be present or absent, got %q", args[len(args)-1])
			}
			day, err := resolveDate(date)
			if err != nil {
				return err
			}

			refs, err := input.ExpandArgs(args[:len(args)-1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			ids := make([]int64, 0, len(refs))
			for _, arg := range refs {
				id, err := parseMemberID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			if len(ids) == 0 {
				return fmt.Errorf("no member ids given")
			}

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			for _, id := range ids {
				rec, err := db.SetAttendance(cmd.Context(), id, day, status)
				if err != nil {
					output.Error("member %d: %v", id, err)
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "#%d %s: %s on %s\n", rec.MemberID, rec.FullName, rec.Status, rec.Date)
			}
			return nil
		},
	}
	dateFlag(cmd.Flags(), &date)
	return cmd
}

func newAttendanceShowCmd(opts *globalOptions) *cobra.Command {
	var (
		date    string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the marks recorded for a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := resolveDate(date)
			if err != nil {
				return err
			}

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			records, err := db.AttendanceByDate(cmd.Context(), day)
			if err != nil {
				return err
			}
			summary, err := db.AttendanceSummary(cmd.Context(), day)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if records == nil {
					records = []models.AttendanceRecord{}
				}
				return output.WriteJSON(out, map[string]any{"date": day, "records": records, "summary": summary})
			}
			fmt.Fprintln(out, output.SectionHeader("Attendance "+day))
			if len(records) == 0 {
				fmt.Fprintln(out, "No marks recorded")
				return nil
			}
			fmt.Fprintln(out, output.AttendanceTable(records))
			fmt.Fprintln(out, output.FormatSummary(summary))
			return nil
		},
	}
	dateFlag(cmd.Flags(), &date)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newAutoAbsentCmd(opts *globalOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "auto-absent",
		Short: "Mark every unmarked active member absent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := resolveDate(date)
			if err != nil {
				return err
			}

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			n, err := db.MarkUnrecordedAbsent(cmd.Context(), day)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d members absent on %s\n", n, day)
			return nil
		},
	}
	dateFlag(cmd.Flags(), &date)
	return cmd
}

func newAttendanceTUICmd(opts *globalOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Mark attendance in an interactive roster",
		Long: `Open the attendance screen for a date. Type / to search, p or a to mark
the highlighted member, q to quit. Marks are saved as they are made.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := resolveDate(date)
			if err != nil {
				return err
			}

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			p := tea.NewProgram(attendance.NewModel(db, day), tea.WithAltScreen())
			final, err := p.Run()
			if err != nil {
				return fmt.Errorf("attendance screen: %w", err)
			}
			if m, ok := final.(attendance.Model); ok {
				present, absent, unmarked := m.Counts()
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d present, %d absent, %d unmarked\n", day, present, absent, unmarked)
			}
			return nil
		},
	}
	dateFlag(cmd.Flags(), &date)
	return cmd
}
