package app

import (
	"context"
	"errors"
	"time"

	"github.com/aatumaykin/agentpilot/internal/ipc"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/scheduler"
)

const metricsShutdownTimeout = 5 * time.Second

// Shutdown stops the components in order: automation, scheduler, queue,
// IPC, metrics. Safe to call more than once.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}

	var errs []error

	if a.controller != nil {
		a.controller.Stop()
	}

	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil && !errors.Is(err, scheduler.ErrNotStarted) {
			a.logger.Error("failed to stop scheduler", err)
			errs = append(errs, err)
		}
	}

	// Закрытие очереди завершает ожидающие команды с ErrQueueClosed
	if a.queue != nil {
		a.queue.Close()
	}

	if a.ipcHandler != nil {
		if err := a.ipcHandler.Stop(); err != nil {
			a.logger.Error("failed to stop IPC handler", err)
			errs = append(errs, err)
		}
	}

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		if err := a.metricsServer.Stop(ctx); err != nil {
			a.logger.Error("failed to stop metrics server", err)
			errs = append(errs, err)
		}
		cancel()
	}

	if a.browser != nil {
		a.browser.Close()
	}

	a.cancel()

	if a.ownsPID {
		if err := ipc.Cleanup(a.config.Workspace.Path); err != nil {
			a.logger.Error("failed to cleanup IPC files", err)
		}
		a.ownsPID = false
	}

	a.started = false
	a.logger.Info("Application shutdown complete",
		logger.Field{Key: "errors", Value: len(errs)})
	return errors.Join(errs...)
}
