package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/cronkeeper/internal/config"
	"github.com/aatumaykin/cronkeeper/internal/constants"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	envPath    string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "cronkeeper",
		Short: "Crontab editor and allow-listed command runner behind an authenticated HTTP API",
		Long: `cronkeeper serves a small HTTP API that edits one crontab file with
validation and file locking, previews upcoming runs, and executes a fixed set
of diagnostic commands. Every endpoint except /healthz requires a bearer token.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvOptional(opts.envPath); err != nil {
				return fmt.Errorf("failed to load env file %s: %w", opts.envPath, err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", constants.DefaultConfigPath, "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.envPath, "env", constants.DefaultEnvPath, "Path to .env file loaded before the configuration")

	root.AddCommand(
		newServeCmd(opts),
		newConfigCmd(opts),
		newCheckCmd(),
		newCommandsCmd(opts),
		newTokenCmd(),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads and validates the configuration file.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &validationErrors{path: path, errs: errs}
	}
	return cfg, nil
}

type validationErrors struct {
	path string
	errs []error
}

func (v *validationErrors) Error() string {
	msg := fmt.Sprintf("configuration %s is invalid (%d errors)", v.path, len(v.errs))
	for _, e := range v.errs {
		msg += "\n  - " + e.Error()
	}
	return msg
}
