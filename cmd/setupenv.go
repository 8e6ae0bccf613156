package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	envFileName        = ".env"
	envDevelopmentName = ".env.development"
	envExampleName     = ".env.example"
)

var errNoEnvTemplate = errors.New("no environment template found, expected .env.development or .env.example")

func newSetupEnvCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "setup-env",
		Short: "Create .env from .env.development or .env.example",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return setupEnv(cmd.OutOrStdout(), dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory holding the env templates")
	return cmd
}

// setupEnv copies the first available template to dir/.env. An existing .env is
// left untouched.
func setupEnv(out io.Writer, dir string) error {
	target := filepath.Join(dir, envFileName)
	if _, err := os.Stat(target); err == nil {
		fmt.Fprintln(out, ".env file already exists")
		fmt.Fprintln(out, "If you need to reset it, delete .env and run setup-env again")
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", target, err)
	}

	for _, name := range []string{envDevelopmentName, envExampleName} {
		template := filepath.Join(dir, name)
		data, err := os.ReadFile(template)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", template, err)
		}

		if err := os.WriteFile(target, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}

		fmt.Fprintf(out, "Created .env from %s\n", name)
		if name == envExampleName {
			fmt.Fprintln(out, "Fill in the analytics keys before deploying")
		}
		return nil
	}

	return errNoEnvTemplate
}
