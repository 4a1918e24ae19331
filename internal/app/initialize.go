package app

import (
	"context"
	"fmt"
	"os"

	"github.com/aatumaykin/agentpilot/internal/app/builders"
	"github.com/aatumaykin/agentpilot/internal/automation"
	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/dispatch"
	"github.com/aatumaykin/agentpilot/internal/ipc"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/notify"
	"github.com/aatumaykin/agentpilot/internal/scheduler"
	"github.com/aatumaykin/agentpilot/internal/version"
)

// Initialize creates and starts all components.
func (a *App) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("application already initialized")
	}

	// 1. Application context
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.started = true

	// 2. Workspace holds the PID file and the socket
	if err := os.MkdirAll(a.config.Workspace.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	if err := ipc.AcquirePID(a.config.Workspace.Path); err != nil {
		return err
	}
	a.ownsPID = true

	// 3. Metrics
	m, srv, err := builders.NewMetricsBuilder(a.config, a.logger).Build()
	if err != nil {
		return err
	}
	a.metrics, a.metricsServer = m, srv

	// 4. Notifications
	if a.notifier == nil {
		n, err := builders.NewNotifierBuilder(a.config, a.logger.Component("notify")).Build()
		if err != nil {
			return err
		}
		a.notifier = n
	}

	// 5. Remote surface
	if a.client == nil || a.surfaces == nil {
		r := builders.NewRemoteBuilder(a.config, a.logger).Build()
		a.browser = r.Browser
		if a.client == nil {
			a.client = r.Client
		}
		if a.surfaces == nil {
			a.surfaces = r.Surfaces
		}
	}

	// 6. Dispatch queue
	a.queue = dispatch.New(a.client, a.clock, a.logger.Component("dispatch"), a.metrics, dispatch.Options{})

	// 7. Automation controller
	cls, err := classifier.New(a.config.Classifier, a.logger.Component("classifier"))
	if err != nil {
		return fmt.Errorf("failed to build classifier: %w", err)
	}
	a.controller = automation.New(automation.Deps{
		Surfaces:   a.surfaces,
		Classifier: cls,
		Notifier:   a.notifier,
		Clock:      a.clock,
		Logger:     a.logger.Component("automation"),
		Metrics:    a.metrics,
	})

	// 8. Scheduler
	var source scheduler.ConfigSource = config.StaticSource{Config: a.config.Scheduler}
	if a.configPath != "" {
		source = config.NewFileSource(a.configPath)
	}
	a.scheduler = scheduler.New(source, a.queue, a.notifier, a.clock, a.logger.Component("scheduler"), a.metrics)
	if err := a.scheduler.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	if a.configPath != "" {
		if err := config.Watch(a.ctx, a.configPath, a.logger, func() { a.scheduler.Check(a.ctx) }); err != nil {
			a.logger.Warn("config watcher disabled", logger.Field{Key: "error", Value: err.Error()})
		}
	}

	// 9. IPC
	a.ipcHandler = ipc.NewHandler(a.logger, a)
	if err := a.ipcHandler.Start(a.ctx, ipc.GetSocketPath(a.config.Workspace.Path)); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}

	// 10. Autostart
	if a.config.Automation.Autostart {
		if err := a.controller.Start(a.ctx, automation.StartConfigFrom(a.config.Automation)); err != nil {
			a.logger.Error("automation autostart failed", err)
		}
	}

	a.notifyStartup()
	return nil
}

func (a *App) notifyStartup() {
	msg := notify.Message{Level: notify.LevelInfo, Title: "Started", Text: version.FormatStartupMessage()}
	if err := a.notifier.Notify(a.ctx, msg); err != nil {
		a.logger.Warn("failed to send startup notification", logger.Field{Key: "error", Value: err.Error()})
	}
}
