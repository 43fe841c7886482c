package app

import (
	"context"
	"fmt"

	"github.com/aatumaykin/cronkeeper/internal/api"
	"github.com/aatumaykin/cronkeeper/internal/app/builders"
	"github.com/aatumaykin/cronkeeper/internal/auth"
	"github.com/aatumaykin/cronkeeper/internal/crontab"
	"github.com/aatumaykin/cronkeeper/internal/executor"
	"github.com/aatumaykin/cronkeeper/internal/logger"
	"github.com/aatumaykin/cronkeeper/internal/metrics"
	"github.com/aatumaykin/cronkeeper/internal/policy"
	"github.com/aatumaykin/cronkeeper/internal/version"
	"github.com/aatumaykin/cronkeeper/internal/workers"
)

// Initialize builds all components from the configuration. Nothing listens
// yet; call Start afterwards.
func (a *App) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ctx, a.cancel = context.WithCancel(ctx)
	cfg := a.config

	// Метрики создаются всегда, наружу handler отдаётся только при metrics.enabled
	a.metrics = metrics.New(cfg.Metrics.Namespace, cfg.Metrics.Runtime)
	a.metrics.SetBuildInfo(version.Version, version.ShortCommit())

	store, err := crontab.NewStore(builders.StoreConfig(cfg), a.logger, a.metrics)
	if err != nil {
		return fmt.Errorf("failed to create crontab store: %w", err)
	}
	a.store = store

	engine, err := policy.NewEngine(cfg.PolicyEngineConfig())
	if err != nil {
		return fmt.Errorf("failed to build command policy: %w", err)
	}
	a.engine = engine
	if engine.PrefixModeEnabled() {
		a.logger.Warn("prefix mode is enabled: raw commands matching a configured prefix will run",
			logger.Field{Key: "prefixes", Value: cfg.Policy.Prefixes})
	}

	a.pool = workers.NewPool(cfg.Executor.PoolSize, cfg.Executor.QueueSize, a.logger)
	a.pool.Start()
	if err := a.metrics.RegisterQueueDepth("batch", a.pool.QueueSize); err != nil {
		a.logger.Warn("failed to register queue depth gauge", logger.Field{Key: "error", Value: err.Error()})
	}

	a.executor = executor.New(builders.ExecutorConfig(cfg), a.logger, a.metrics).WithPool(a.pool)

	authn, err := auth.NewTokenAuthenticator(builders.TokenEntries(cfg))
	if err != nil {
		a.pool.Stop()
		return fmt.Errorf("failed to configure authentication: %w", err)
	}
	a.authn = authn

	a.handler = api.NewHandler(a.store, a.engine, a.executor, a.authn, a.metrics, a.logger,
		builders.HandlerOptions(cfg, a.metrics.Handler()))
	a.server = api.NewServer(builders.ServerConfig(cfg), a.handler.Routes(), a.logger)

	a.logger.Info("components initialized",
		logger.Field{Key: "pool_size", Value: a.pool.WorkerCount()},
		logger.Field{Key: "aliases", Value: policy.Keys()},
		logger.Field{Key: "metrics", Value: cfg.Metrics.Enabled})
	return nil
}
