package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/cronkeeper/internal/app"
	"github.com/aatumaykin/cronkeeper/internal/app/builders"
	"github.com/aatumaykin/cronkeeper/internal/logger"
	"github.com/aatumaykin/cronkeeper/internal/version"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		Long: `Start the gateway with the given configuration. The process runs until
SIGINT or SIGTERM, then drains in-flight requests and removes its PID file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}

			log, err := logger.New(builders.LoggerConfig(cfg))
			if err != nil {
				return err
			}
			defer log.Close()
			logger.SetDefault(log)

			log.Info("starting cronkeeper",
				logger.Field{Key: "version", Value: version.Version},
				logger.Field{Key: "git_commit", Value: version.ShortCommit()},
				logger.Field{Key: "config", Value: opts.configPath},
				logger.Field{Key: "listen", Value: cfg.Server.Listen},
				logger.Field{Key: "crontab", Value: cfg.Crontab.Path})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.New(cfg, log).Run(ctx); err != nil {
				log.Error("cronkeeper stopped with error", err)
				return err
			}
			log.Info("cronkeeper stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
	return cmd
}
