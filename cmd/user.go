package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jpcc/flock/internal/auth"
	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/output"
	"github.com/jpcc/flock/internal/store"
	"github.com/jpcc/flock/internal/suggest"
)

func newUserCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Manage staff accounts",
		GroupID: "system",
	}
	cmd.AddCommand(
		newUserAddCmd(opts),
		newUserListCmd(opts),
		newUserPasswdCmd(opts),
		newUserRmCmd(opts),
	)
	return cmd
}

func roleNames() []string {
	names := make([]string, len(models.ValidRoles))
	for i, r := range models.ValidRoles {
		names[i] = string(r)
	}
	return names
}

// promptPassword asks for a password twice on a terminal.
func promptPassword(title string) (string, error) {
	if !stdinIsTerminal() {
		return "", errors.New("--password is required when stdin is not a terminal")
	}
	var pw, confirm string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			EchoMode(huh.EchoModePassword).
			Value(&pw).
			Validate(func(s string) error {
				if len(s) < auth.MinPasswordLen {
					return fmt.Errorf("at least %d characters", auth.MinPasswordLen)
				}
				return nil
			}),
		huh.NewInput().
			Title("Repeat password").
			EchoMode(huh.EchoModePassword).
			Value(&confirm),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	if pw != confirm {
		return "", errors.New("passwords do not match")
	}
	return pw, nil
}

// findUser resolves an id or email.
func findUser(ctx context.Context, db *store.DB, ref string) (*models.User, error) {
	var (
		u   *models.User
		err error
	)
	if strings.Contains(ref, "@") {
		u, err = db.GetUserByEmail(ctx, ref)
	} else {
		u, err = db.GetUserByID(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", ref, store.ErrNotFound)
	}
	return u, nil
}

func newUserAddCmd(opts *globalOptions) *cobra.Command {
	var (
		role     string
		password string
	)

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create a staff account",
		Long: fmt.Sprintf(`Create a staff account. Roles: %s.

Examples:
  flock user add usher@example.org --role attendance
  flock user add admin@example.org --role admin --password '...'`, strings.Join(roleNames(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := suggest.Match("role", role, roleNames())
			if err != nil {
				return err
			}
			r := models.Role(name)
			if password == "" {
				if password, err = promptPassword("Password for " + args[0]); err != nil {
					return err
				}
			}

			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			u, err := db.CreateUser(cmd.Context(), args[0], password, r)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", u.ID, u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", string(models.RolePersonal), "account role")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newUserListCmd(opts *globalOptions) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List staff accounts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			users, err := db.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				if users == nil {
					users = []*models.User{}
				}
				return output.WriteJSON(out, users)
			}
			if len(users) == 0 {
				fmt.Fprintln(out, "No accounts")
				return nil
			}
			fmt.Fprintln(out, output.UsersTable(users))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newUserPasswdCmd(opts *globalOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd <email|id>",
		Short: "Reset an account password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			u, err := findUser(cmd.Context(), db, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if password == "" {
				if password, err = promptPassword("New password for " + u.Email); err != nil {
					return err
				}
			}
			if err := db.SetPassword(cmd.Context(), u.ID, password); err != nil {
				output.Error("%v", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", u.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when omitted)")
	return cmd
}

func newUserRmCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <email|id>",
		Aliases: []string{"delete"},
		Short:   "Delete a staff account",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			u, err := findUser(cmd.Context(), db, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if err := db.DeleteUser(cmd.Context(), u.ID); err != nil {
				output.Error("%v", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", u.Email)
			return nil
		},
	}
}
