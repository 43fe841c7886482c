package app

import (
	"context"
	"errors"
	"os"

	"github.com/aatumaykin/cronkeeper/internal/ipc"
)

// Shutdown stops the gateway, waits for in-flight requests and releases the
// worker pool and the PID file. It is safe to call more than once.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
	}

	var errs []error
	if a.started && a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout())
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("failed to stop gateway gracefully", err)
			errs = append(errs, err)
		}
		cancel()
	}
	a.started = false

	if a.pool != nil {
		a.pool.Stop()
		a.pool = nil
	}

	if a.pidFile != "" {
		if err := ipc.Cleanup(a.pidFile, os.Getpid()); err != nil {
			a.logger.Error("failed to remove PID file", err)
			errs = append(errs, err)
		}
		a.pidFile = ""
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
