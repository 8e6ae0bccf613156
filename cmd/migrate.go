package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/coe/config"
	"github.com/angeloszaimis/coe/internal/database"
)

func newMigrateCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the users schema for the configured dialect",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd, *envFile, database.Up)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd, *envFile, database.Down)
			},
		},
	)

	return cmd
}

func runMigrate(cmd *cobra.Command, envFile string, dir database.Direction) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	resolved, err := database.Resolve(cfg.Database.Dialect, cfg.Database.URL, cfg.App.Env)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg, resolved)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(cmd.Context(), db, resolved, dir); err != nil {
		return err
	}

	action := "applied"
	if dir == database.Down {
		action = "rolled back"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migrations %s for %s\n", action, resolved.Dialect)
	return nil
}
