// Package cmd implements the flock operator CLI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpcc/flock/internal/config"
	"github.com/jpcc/flock/internal/store"
)

var appVersion string

// SetVersion sets the version string
func SetVersion(v string) {
	appVersion = v
}

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	driver     string
	dsn        string
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// nameWithAliases returns "name, alias1, alias2" if aliases exist, else just "name"
func nameWithAliases(cmd *cobra.Command) string {
	if len(cmd.Aliases) > 0 {
		return cmd.Name() + ", " + strings.Join(cmd.Aliases, ", ")
	}
	return cmd.Name()
}

// Custom usage template that shows aliases inline
const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`

func init() {
	cobra.AddTemplateFunc("nameWithAliases", nameWithAliases)
	// Need to add the 'add' function for padding calculation
	cobra.AddTemplateFunc("add", func(a, b int) int { return a + b })
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "flock",
		Short: "Church membership and attendance CLI",
		Long: `flock - member registry, weekly attendance and spreadsheet import/export.

Commands work directly against the configured database, the same one
flock-server uses.`,
		SilenceUsage: true,
	}
	root.SetUsageTemplate(usageTemplate)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "path to config file")
	flags.StringVar(&opts.driver, "db-driver", "", "database driver: sqlite, sqlite3 or postgres")
	flags.StringVar(&opts.dsn, "dsn", "", "database connection string or SQLite file path")

	// Define command groups for organized help output
	root.AddGroup(
		&cobra.Group{ID: "members", Title: "Member Commands:"},
		&cobra.Group{ID: "attendance", Title: "Attendance Commands:"},
		&cobra.Group{ID: "data", Title: "Import, Export and Reports:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)

	root.AddCommand(
		newMemberCmd(opts),
		newAttendanceCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newReportCmd(opts),
		newUserCmd(opts),
		newMigrateCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	// Assign built-in commands to system group
	root.SetHelpCommandGroupID("system")
	root.SetCompletionCommandGroupID("system")
	return root
}

// loadConfig reads the config file and applies the --db-driver and --dsn flags.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.driver != "" {
		cfg.Database.Driver = o.driver
	}
	if o.dsn != "" {
		cfg.Database.DSN = o.dsn
	}
	return cfg, nil
}

// openStore opens the configured database. Callers close it.
func (o *globalOptions) openStore(ctx context.Context) (*store.DB, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(ctx, store.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}
