package app

import (
	"context"

	"github.com/aatumaykin/agentpilot/internal/automation"
	"github.com/aatumaykin/agentpilot/internal/dispatch"
	"github.com/aatumaykin/agentpilot/internal/ipc"
	"github.com/aatumaykin/agentpilot/internal/version"
)

var _ ipc.Backend = (*App)(nil)

// Submit queues a prompt for delivery.
func (a *App) Submit(text string) (*dispatch.Receipt, error) {
	return a.queue.Submit(text)
}

// Status combines session, queue and scheduler state.
func (a *App) Status() ipc.Status {
	return ipc.Status{
		Version:   version.Version,
		Session:   a.controller.State(),
		Queue:     a.queue.Snapshot(),
		Scheduler: a.scheduler.Status(),
	}
}

// StartAutomation starts the accept loops. Empty request fields fall back to
// the [automation] section.
func (a *App) StartAutomation(ctx context.Context, cfg automation.StartConfig) error {
	if cfg.IDE == "" {
		cfg.IDE = a.config.Automation.IDE
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = a.config.Automation.PollInterval()
	}
	return a.controller.Start(ctx, cfg)
}

func (a *App) StopAutomation() {
	a.controller.Stop()
}
