// Package builders translates the TOML configuration into the option structs
// of the individual components.
package builders

import (
	"net/http"

	"github.com/aatumaykin/cronkeeper/internal/api"
	"github.com/aatumaykin/cronkeeper/internal/auth"
	"github.com/aatumaykin/cronkeeper/internal/config"
	"github.com/aatumaykin/cronkeeper/internal/crontab"
	"github.com/aatumaykin/cronkeeper/internal/executor"
	"github.com/aatumaykin/cronkeeper/internal/logger"
)

func LoggerConfig(cfg *config.Config) logger.Config {
	return logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
}

func StoreConfig(cfg *config.Config) crontab.StoreConfig {
	return crontab.StoreConfig{
		Path:        cfg.Crontab.Path,
		LockTimeout: cfg.Crontab.LockTimeout(),
		Backup:      cfg.Crontab.Backup,
	}
}

func ExecutorConfig(cfg *config.Config) executor.Config {
	return executor.Config{
		Timeout:        cfg.Executor.Timeout(),
		MaxOutputBytes: cfg.Executor.MaxOutputBytes,
		WorkDir:        cfg.Executor.WorkingDir,
		Shell:          cfg.Executor.Shell,
		WaitDelay:      cfg.Executor.WaitDelay(),
		KillGrace:      cfg.Executor.KillGrace(),
	}
}

func TokenEntries(cfg *config.Config) []auth.TokenEntry {
	entries := make([]auth.TokenEntry, len(cfg.Auth.Tokens))
	for i, t := range cfg.Auth.Tokens {
		entries[i] = auth.TokenEntry{Name: t.Name, Hash: t.Hash}
	}
	return entries
}

func ServerConfig(cfg *config.Config) api.ServerConfig {
	return api.ServerConfig{
		Listen:       cfg.Server.Listen,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}
}

// HandlerOptions builds the gateway options. metricsHandler is mounted only
// when metrics are enabled.
func HandlerOptions(cfg *config.Config, metricsHandler http.Handler) api.Options {
	opts := api.Options{
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		ScheduleCount:    cfg.Crontab.ScheduleCount,
		MaxBatchSize:     cfg.Executor.MaxBatchSize,
		BatchConcurrency: cfg.Executor.BatchConcurrency,
		CommandTimeout:   cfg.Executor.Timeout(),
	}
	if cfg.Metrics.Enabled {
		opts.MetricsHandler = metricsHandler
		opts.MetricsPath = cfg.Metrics.Path
	}
	return opts
}
