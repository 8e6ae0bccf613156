package main

import (
	"github.com/spf13/cobra"

	"github.com/angeloszaimis/coe/config"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "coe",
		Short: "Starter service with a user API and analytics proxy",
		Long: `coe serves a small JSON user API, the request rewrite table that proxies
Google Tag Manager and PostHog traffic, and the runtime configuration that
binds the configured database dialect.

Running coe without a subcommand starts the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFile)
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Path to the .env file (missing files are ignored)")

	root.AddCommand(
		newServeCmd(&envFile),
		newMigrateCmd(&envFile),
		newConfigCmd(&envFile),
		newSetupEnvCmd(),
	)

	return root
}
