// Package app wires the crontab store, the policy engine, the executor and
// the HTTP gateway together and owns their lifecycle.
package app

import (
	"context"
	"os"
	"sync"

	"github.com/aatumaykin/cronkeeper/internal/api"
	"github.com/aatumaykin/cronkeeper/internal/auth"
	"github.com/aatumaykin/cronkeeper/internal/config"
	"github.com/aatumaykin/cronkeeper/internal/crontab"
	"github.com/aatumaykin/cronkeeper/internal/executor"
	"github.com/aatumaykin/cronkeeper/internal/ipc"
	"github.com/aatumaykin/cronkeeper/internal/logger"
	"github.com/aatumaykin/cronkeeper/internal/metrics"
	"github.com/aatumaykin/cronkeeper/internal/policy"
	"github.com/aatumaykin/cronkeeper/internal/workers"
)

// App holds every long-lived component.
type App struct {
	config *config.Config
	logger *logger.Logger

	metrics  *metrics.PrometheusMetrics
	store    *crontab.Store
	engine   *policy.Engine
	pool     *workers.WorkerPool
	executor *executor.Executor
	authn    *auth.TokenAuthenticator
	handler  *api.Handler
	server   *api.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	pidFile string
}

// New creates an App. Components are built in Initialize.
func New(cfg *config.Config, log *logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{
		config: cfg,
		logger: log,
	}
}

// Run initializes the components, starts the gateway and blocks until ctx is
// cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		_ = a.Shutdown()
		return err
	}

	a.logger.Info("cronkeeper is running",
		logger.Field{Key: "address", Value: a.server.Addr()},
		logger.Field{Key: "crontab", Value: a.store.Path()})

	var serveErr error
	select {
	case <-ctx.Done():
	case err, ok := <-a.server.Done():
		if ok {
			serveErr = err
		}
	}

	if err := a.Shutdown(); err != nil {
		return err
	}
	return serveErr
}

// Start binds the listener and writes the PID file.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.server.Start(); err != nil {
		return err
	}
	a.started = true

	if path := a.config.Runtime.PidFile; path != "" {
		if err := ipc.WritePID(path, os.Getpid()); err != nil {
			return err
		}
		a.pidFile = path
	}
	return nil
}

// Addr returns the gateway address once started.
func (a *App) Addr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

// Handler exposes the HTTP handler tree, mainly for tests.
func (a *App) Handler() *api.Handler {
	return a.handler
}
