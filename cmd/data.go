package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jpcc/flock/internal/importer"
	"github.com/jpcc/flock/internal/normalize"
	"github.com/jpcc/flock/internal/output"
	"github.com/jpcc/flock/internal/spreadsheet"
	"github.com/jpcc/flock/internal/store"
)

func newImportCmd(opts *globalOptions) *cobra.Command {
	var (
		dryRun  bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import members from a spreadsheet",
		Long: `Import members from the first sheet of an xlsx workbook. Header names are
matched loosely ("First Name", "first_name" and "FirstName" are the same
column). Bad rows are reported and skipped.

Examples:
  flock import members.xlsx --dry-run   # validate only
  flock import members.xlsx`,
		GroupID: "data",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer f.Close()

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			res, err := importer.New(db).Import(cmd.Context(), f, importer.Options{
				DryRun:   dryRun,
				FileName: filepath.Base(args[0]),
			})
			if errors.Is(err, spreadsheet.ErrEmptyWorkbook) {
				output.Error("%s is empty", args[0])
				return err
			}
			if res == nil {
				output.Error("could not read workbook: %v", err)
				return err
			}
			if err != nil {
				output.Warning("%v", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return output.WriteJSON(out, res)
			}
			verb := "imported"
			if dryRun {
				verb = "valid"
			}
			fmt.Fprintf(out, "%s %s, %s failed\n", humanize.Comma(int64(res.Imported)), verb, humanize.Comma(int64(res.Failed())))
			for _, fail := range res.Failures {
				name := fail.Name
				if name == "" {
					name = "(no name)"
				}
				fmt.Fprintf(out, "  row %d %s: %s\n", fail.Row, name, fail.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate rows without saving")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

// writeFile renders into path, or stdout when path is "-".
func writeFile(cmd *cobra.Command, path string, render func(io.Writer) error) error {
	if path == "-" {
		return render(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	output.Success("Wrote %s", path)
	return nil
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Export members or attendance to xlsx",
		GroupID: "data",
	}

	var (
		memberOut string
		filter    store.MemberFilter
	)
	members := &cobra.Command{
		Use:   "members",
		Short: "Export the member registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			list, err := db.ListMembers(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return writeFile(cmd, memberOut, func(w io.Writer) error {
				return spreadsheet.WriteMembers(w, list)
			})
		},
	}
	members.Flags().StringVarP(&memberOut, "output", "o", "members_report.xlsx", `output file ("-" for stdout)`)
	members.Flags().StringVar(&filter.Search, "search", "", "match first or last name")
	members.Flags().StringVar(&filter.AgeGroup, "age-group", "", "filter by age group")
	members.Flags().StringVar(&filter.Gender, "gender", "", "filter by gender")
	members.Flags().StringVar(&filter.MemberStatus, "status", "", `member status, or "all"`)

	var (
		attOut string
		af     store.AttendanceFilter
	)
	att := &cobra.Command{
		Use:   "attendance",
		Short: "Export attendance marks with a per-member summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := normalizeRange(&af.DateFrom, &af.DateTo); err != nil {
				return err
			}

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			var report spreadsheet.AttendanceReport
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				report.Records, err = db.AttendanceRange(ctx, af)
				return err
			})
			g.Go(func() error {
				var err error
				report.Totals, err = db.MemberAttendanceTotals(ctx, af)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			return writeFile(cmd, attOut, func(w io.Writer) error {
				return spreadsheet.WriteAttendance(w, report)
			})
		},
	}
	att.Flags().StringVarP(&attOut, "output", "o", "attendance_report.xlsx", `output file ("-" for stdout)`)
	att.Flags().StringVar(&af.DateFrom, "from", "", "first date")
	att.Flags().StringVar(&af.DateTo, "to", "", "last date")
	att.Flags().StringVar(&af.AgeGroup, "age-group", "", "filter by age group")

	var tplOut string
	tpl := &cobra.Command{
		Use:       "template <members|attendance>",
		Short:     "Write a blank import template",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"members", "attendance"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "members":
				return writeFile(cmd, valueOr(tplOut, "members_template.xlsx"), spreadsheet.WriteMemberTemplate)
			case "attendance":
				return writeFile(cmd, valueOr(tplOut, "attendance_template.xlsx"), spreadsheet.WriteAttendanceTemplate)
			}
			return fmt.Errorf("unknown template %q (members or attendance)", args[0])
		},
	}
	tpl.Flags().StringVarP(&tplOut, "output", "o", "", "output file")

	cmd.AddCommand(members, att, tpl)
	return cmd
}

// normalizeRange parses optional --from/--to values in place.
func normalizeRange(from, to *string) error {
	var err error
	if *from, err = normalize.OptionalDate(*from); err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	if *to, err = normalize.OptionalDate(*to); err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	if *from != "" && *to != "" && *from > *to {
		return fmt.Errorf("--from %s is after --to %s", *from, *to)
	}
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func newReportCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Attendance reports",
		GroupID: "data",
	}

	var (
		af  store.AttendanceFilter
		raw bool
	)
	summary := &cobra.Command{
		Use:   "summary",
		Short: "Attendance rates by age group and member",
		Long: `Summarize attendance over a date range. Output is rendered markdown on a
terminal; use --raw to print the markdown source.

Examples:
  flock report summary --from 2026-01-01 --to 2026-03-31
  flock report summary --age-group Youth --raw > youth.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := normalizeRange(&af.DateFrom, &af.DateTo); err != nil {
				return err
			}

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			totals, err := db.MemberAttendanceTotals(cmd.Context(), af)
			if err != nil {
				return err
			}

			doc := output.SummaryMarkdown(output.SummaryReport{From: af.DateFrom, To: af.DateTo, Totals: totals})
			if !raw && output.IsTerminal() {
				if rendered, err := output.RenderMarkdown(doc, 0); err == nil {
					doc = rendered
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc)
			return nil
		},
	}
	summary.Flags().StringVar(&af.DateFrom, "from", "", "first date")
	summary.Flags().StringVar(&af.DateTo, "to", "", "last date")
	summary.Flags().StringVar(&af.AgeGroup, "age-group", "", "filter by age group")
	summary.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")

	cmd.AddCommand(summary)
	return cmd
}
