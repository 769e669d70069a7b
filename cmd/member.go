package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jpcc/flock/internal/memberform"
	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/normalize"
	"github.com/jpcc/flock/internal/output"
	"github.com/jpcc/flock/internal/store"
	"github.com/jpcc/flock/internal/suggest"
)

func newMemberCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "member",
		Aliases: []string{"members", "m"},
		Short:   "Manage the member registry",
		GroupID: "members",
	}
	cmd.AddCommand(
		newMemberAddCmd(opts),
		newMemberEditCmd(opts),
		newMemberListCmd(opts),
		newMemberShowCmd(opts),
		newMemberRmCmd(opts),
	)
	return cmd
}

// stdinIsTerminal reports whether an interactive form can be shown
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func parseMemberID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid member id %q", arg)
	}
	return id, nil
}

func newMemberAddCmd(opts *globalOptions) *cobra.Command {
	var (
		v           memberform.Values
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new member",
		Long: `Register a new member from flags, or with an interactive form.

Examples:
  flock member add --first-name Ana --last-name Reyes --dob 1990-03-04
  flock member add --first-name Ben --ministry Media --training "Life Class"
  flock member add -i                 # fill in a form`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive {
				if !stdinIsTerminal() {
					return errors.New("--interactive needs a terminal")
				}
				if err := memberform.Run(&v); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						output.Warning("cancelled")
						return nil
					}
					return err
				}
			}

			in, err := v.Input()
			if err != nil {
				output.Error("%v", err)
				return err
			}

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			m, err := db.CreateMember(cmd.Context(), in)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added member #%d %s (%s)\n", m.ID, m.FullName(), valueOrDash(m.AgeGroup))
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&interactive, "interactive", "i", false, "fill in the member form interactively")
	f.StringVar(&v.FirstName, "first-name", "", "first name (required)")
	f.StringVar(&v.LastName, "last-name", "", "last name")
	f.StringVar(&v.Gender, "gender", "", "Male or Female")
	f.StringVar(&v.MaritalStatus, "marital-status", "", "Single, Married, Widowed or Separated")
	f.StringVar(&v.DateOfBirth, "dob", "", "date of birth")
	f.StringVar(&v.ContactNumber, "contact", "", "contact number")
	f.StringVar(&v.Address, "address", "", "home address")
	f.StringVar(&v.InvitedBy, "invited-by", "", "who invited the member")
	f.StringVar(&v.PrevChurch, "prev-church", "", "previous church")
	f.BoolVar(&v.PrevChurchAttendee, "prev-church-attendee", false, "attended another church before")
	f.StringVar(&v.DateAttended, "date-attended", "", "month first attended")
	f.BoolVar(&v.AttendingCellGroup, "cell-group", false, "attending a cell group")
	f.StringVar(&v.CellLeaderName, "cell-leader", "", "cell leader name")
	f.StringSliceVar(&v.Ministries, "ministry", nil, "church ministry (repeatable)")
	f.StringSliceVar(&v.Trainings, "training", nil, "completed training (repeatable)")
	f.BoolVar(&v.WaterBaptized, "baptized", false, "water baptized")
	f.BoolVar(&v.WillingTraining, "willing-training", false, "willing to take training")
	f.StringVar(&v.Consolidation, "consolidation", "", "consolidation notes")
	f.StringVar(&v.Reason, "reason", "", "reason for attending")
	f.StringVar(&v.MemberStatus, "status", models.MemberActive, "active or inactive")
	return cmd
}

func newMemberEditCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <member-id>",
		Short: "Edit a member in the interactive form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMemberID(args[0])
			if err != nil {
				return err
			}
			if !stdinIsTerminal() {
				return errors.New("edit needs a terminal")
			}

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			m, err := db.GetMember(cmd.Context(), id)
			if err != nil {
				return err
			}
			if m == nil {
				output.Error("member %d not found", id)
				return store.ErrNotFound
			}

			v := memberform.FromMember(m)
			if err := memberform.Run(&v); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					output.Warning("cancelled")
					return nil
				}
				return err
			}
			in, err := v.Input()
			if err != nil {
				output.Error("%v", err)
				return err
			}
			// households and photo are not on the form
			in.Households = nil
			in.PhotoURL = m.PhotoURL

			updated, err := db.UpdateMember(cmd.Context(), id, in)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			output.Success("Updated member #%d %s", updated.ID, updated.FullName())
			return nil
		},
	}
}

func newMemberListCmd(opts *globalOptions) *cobra.Command {
	var (
		filter  store.MemberFilter
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List members",
		Long: `List members, newest first.

Examples:
  flock member list --search reyes
  flock member list --age-group Youth --status all
  flock member list --from 2024-01 --to 2024-06 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if filter.DateFrom, err = normalize.OptionalDate(filter.DateFrom); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if filter.DateTo, err = normalize.OptionalDate(filter.DateTo); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			if filter.AgeGroup != "" {
				if filter.AgeGroup, err = suggest.Match("age group", filter.AgeGroup, models.AgeGroups); err != nil {
					return err
				}
			}
			if filter.Training != "" {
				filter.Training = normalize.CanonicalTraining(filter.Training)
			}

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			members, err := db.ListMembers(cmd.Context(), filter)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if members == nil {
					members = []*models.Member{}
				}
				return output.WriteJSON(out, members)
			}
			if len(members) == 0 {
				fmt.Fprintln(out, "No members found")
				return nil
			}
			fmt.Fprintln(out, output.MembersTable(members))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&filter.Search, "search", "s", "", "match first or last name")
	f.StringVar(&filter.Gender, "gender", "", "filter by gender")
	f.StringVar(&filter.MaritalStatus, "marital-status", "", "filter by marital status")
	f.StringVar(&filter.AgeGroup, "age-group", "", "filter by age group")
	f.StringVar(&filter.MemberStatus, "status", models.MemberActive, `member status, or "all"`)
	f.StringVar(&filter.DateFrom, "from", "", "first attended on or after")
	f.StringVar(&filter.DateTo, "to", "", "first attended on or before")
	f.StringVar(&filter.Training, "training", "", "completed training")
	f.IntVarP(&filter.Limit, "limit", "n", 0, "max rows")
	f.IntVar(&filter.Offset, "offset", 0, "rows to skip")
	f.BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newMemberShowCmd(opts *globalOptions) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "show <member-id>",
		Aliases: []string{"get"},
		Short:   "Show a member's full record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMemberID(args[0])
			if err != nil {
				return err
			}

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			m, err := db.GetMember(cmd.Context(), id)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if m == nil {
				output.Error("member %d not found", id)
				return store.ErrNotFound
			}

			if jsonOut {
				return output.WriteJSON(cmd.OutOrStdout(), m)
			}
			fmt.Fprint(cmd.OutOrStdout(), output.FormatMemberLong(m))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newMemberRmCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <member-id>...",
		Aliases: []string{"delete"},
		Short:   "Delete members with their trainings, household and attendance",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			var failed bool
			for _, arg := range args {
				id, err := parseMemberID(arg)
				if err == nil {
					err = db.DeleteMember(cmd.Context(), id)
				}
				if err != nil {
					output.Error("%s: %v", arg, err)
					failed = true
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted member #%d\n", id)
			}
			if failed {
				return errors.New("some members were not deleted")
			}
			return nil
		},
	}
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
