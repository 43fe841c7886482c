package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/cronkeeper/internal/config"
	"github.com/aatumaykin/cronkeeper/internal/constants"
	"github.com/aatumaykin/cronkeeper/internal/ipc"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var pidFile string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether a gateway process is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := pidFile
			if path == "" {
				path = constants.DefaultPidPath
				if cfg, err := config.Load(opts.configPath); err == nil && cfg.Runtime.PidFile != "" {
					path = cfg.Runtime.PidFile
				}
			}

			pid, running, err := ipc.Status(path)
			if err != nil {
				return err
			}
			switch {
			case running:
				fmt.Fprintf(cmd.OutOrStdout(), "running (pid %d)\n", pid)
			case pid > 0:
				fmt.Fprintf(cmd.OutOrStdout(), "not running (stale PID file %s, pid %d)\n", path, pid)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "not running")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pidFile, "pid-file", "", "PID file to inspect (default: runtime.pid_file from config)")
	return cmd
}
