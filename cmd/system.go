package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jpcc/flock/internal/config"
	"github.com/jpcc/flock/internal/output"
	"github.com/jpcc/flock/internal/version"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "migrate",
		Short:   "Create or upgrade the database schema",
		GroupID: "system",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Open applies pending migrations
			db, err := opts.openStore(cmd.Context())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			defer db.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", db.Driver(), db.SchemaVersion(cmd.Context()))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Print the flock version",
		GroupID: "system",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "flock %s\n", appVersion)
			if !check {
				return nil
			}

			res, err := version.Check(cmd.Context(), appVersion)
			if err != nil {
				output.Warning("update check failed: %v", err)
				return nil
			}
			switch {
			case version.IsDevelopmentVersion(appVersion):
				fmt.Fprintln(out, "development build, update check skipped")
			case res.HasUpdate:
				fmt.Fprintf(out, "%s is available (published %s)\n  %s\n",
					res.LatestVersion, output.FormatTimeAgo(res.PublishedAt), version.UpdateCommand(res.LatestVersion))
			default:
				fmt.Fprintln(out, "up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}

// newSecret returns 32 random bytes hex encoded
func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage flock configuration",
		GroupID: "system",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with fresh token secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			var err error
			if cfg.Auth.AccessSecret, err = newSecret(); err != nil {
				return err
			}
			if cfg.Auth.RefreshSecret, err = newSecret(); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				output.Error("%v", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cfg.Auth.AccessSecret = mask(cfg.Auth.AccessSecret)
			cfg.Auth.RefreshSecret = mask(cfg.Auth.RefreshSecret)

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
