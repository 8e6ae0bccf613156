package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/coe/config"
	"github.com/angeloszaimis/coe/internal/database"
)

func newConfigCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the runtime configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and show the resolved database binding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigCheck(cmd, *envFile)
		},
	})

	return cmd
}

func runConfigCheck(cmd *cobra.Command, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	resolved, err := database.Resolve(cfg.Database.Dialect, cfg.Database.URL, cfg.App.Env)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Configuration OK")
	fmt.Fprintf(w, "app env\t%s\n", cfg.App.Env)
	fmt.Fprintf(w, "dialect\t%s\n", resolved.Dialect)
	fmt.Fprintf(w, "driver\t%s\n", resolved.DriverName)
	fmt.Fprintf(w, "schema\t%s\n", resolved.Schema.Dir)
	fmt.Fprintf(w, "user store\t%s\n", cfg.Server.UserStore)
	fmt.Fprintf(w, "http addr\t%s\n", cfg.Server.Address)
	return w.Flush()
}
