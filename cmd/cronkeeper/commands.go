package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/cronkeeper/internal/config"
	"github.com/aatumaykin/cronkeeper/internal/policy"
)

func newCommandsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the allowed command aliases",
		Long: `Print every alias with the argv it runs. Alias overrides from the
configuration are applied when the file exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pcfg := policy.Config{}
			if cfg, err := config.Load(opts.configPath); err == nil {
				pcfg = cfg.PolicyEngineConfig()
			}
			engine, err := policy.NewEngine(pcfg)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tCOMMAND\tDESCRIPTION")
			for _, a := range policy.Aliases() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Key(), strings.Join(engine.Argv(a), " "), a.Description())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if engine.PrefixModeEnabled() {
				fmt.Fprintf(cmd.OutOrStdout(), "\nprefix mode: enabled (%s)\n", strings.Join(pcfg.Prefixes, ", "))
			}
			return nil
		},
	}
}
