package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jpcc/flock/internal/config"
	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/store"
)

func runAdmin(args []string) {
	if err := admin(context.Background(), args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printAdminUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: flock-server admin <command> [flags]

Commands:
  create-user  Create an account (use --role admin to bootstrap)
  set-role     Change an account's role
  list-users   List accounts`)
}

var errUsage = errors.New("invalid usage")

// admin dispatches one admin subcommand, writing results to out.
func admin(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		printAdminUsage(os.Stderr)
		return errUsage
	}

	switch args[0] {
	case "create-user":
		return adminCreateUser(ctx, args[1:], out)
	case "set-role":
		return adminSetRole(ctx, args[1:], out)
	case "list-users":
		return adminListUsers(ctx, args[1:], out)
	default:
		printAdminUsage(os.Stderr)
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

// dbFlags registers the flags every admin command shares
func dbFlags(fs *flag.FlagSet) (configPath, driver, dsn *string) {
	configPath = fs.String("config", config.DefaultPath, "path to config file")
	driver = fs.String("db-driver", "", "database driver (default: from config)")
	dsn = fs.String("dsn", "", "database DSN (default: from config)")
	return
}

func openDB(ctx context.Context, configPath, driver, dsn string) (*store.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if driver != "" {
		cfg.Database.Driver = driver
	}
	if dsn != "" {
		cfg.Database.DSN = dsn
	}
	db, err := store.Open(ctx, store.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func adminCreateUser(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("admin create-user", flag.ContinueOnError)
	email := fs.String("email", "", "account email address")
	role := fs.String("role", string(models.RoleAdmin), "account role")
	password := fs.String("password", "", "password (default: $FLOCK_ADMIN_PASSWORD)")
	configPath, driver, dsn := dbFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		fs.Usage()
		return errors.New("--email is required")
	}
	if *password == "" {
		*password = os.Getenv("FLOCK_ADMIN_PASSWORD")
	}
	if *password == "" {
		return errors.New("--password or FLOCK_ADMIN_PASSWORD is required")
	}

	db, err := openDB(ctx, *configPath, *driver, *dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	u, err := db.CreateUser(ctx, *email, *password, models.Role(strings.ToLower(*role)))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %s (%s) id=%s\n", u.Email, u.Role, u.ID)
	return nil
}

func adminSetRole(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("admin set-role", flag.ContinueOnError)
	email := fs.String("email", "", "account email address")
	role := fs.String("role", "", "new role")
	configPath, driver, dsn := dbFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *role == "" {
		fs.Usage()
		return errors.New("--email and --role are required")
	}

	db, err := openDB(ctx, *configPath, *driver, *dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	u, err := db.GetUserByEmail(ctx, *email)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user not found: %s", *email)
	}

	newRole := models.Role(strings.ToLower(*role))
	if u.Role == models.RoleAdmin && newRole != models.RoleAdmin {
		n, err := countAdmins(ctx, db)
		if err != nil {
			return err
		}
		if n <= 1 {
			return errors.New("cannot demote the last admin")
		}
	}

	if err := db.SetRole(ctx, u.ID, newRole); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is now %s\n", u.Email, newRole)
	return nil
}

func adminListUsers(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("admin list-users", flag.ContinueOnError)
	configPath, driver, dsn := dbFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openDB(ctx, *configPath, *driver, *dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := db.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Fprintf(out, "%s\t%s\t%s\n", u.ID, u.Email, u.Role)
	}
	return nil
}

func countAdmins(ctx context.Context, db *store.DB) (int, error) {
	users, err := db.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, u := range users {
		if u.Role == models.RoleAdmin {
			n++
		}
	}
	return n, nil
}
