// Package app wires the agentpilot daemon: the dispatch queue, the
// automation controller, the scheduler, notifications, metrics and the IPC
// server that the CLI talks to.
package app

import (
	"context"
	"sync"

	"github.com/aatumaykin/agentpilot/internal/automation"
	"github.com/aatumaykin/agentpilot/internal/cdp"
	"github.com/aatumaykin/agentpilot/internal/clock"
	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/dispatch"
	"github.com/aatumaykin/agentpilot/internal/ipc"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/metrics"
	"github.com/aatumaykin/agentpilot/internal/notify"
	"github.com/aatumaykin/agentpilot/internal/remote"
	"github.com/aatumaykin/agentpilot/internal/scheduler"
)

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	// Configuration and core services
	config     *config.Config
	configPath string
	logger     *logger.Logger
	clock      clock.Clock

	// Remote surface
	browser  *cdp.Browser
	client   remote.Client
	surfaces automation.SurfaceFactory

	// Core components
	queue      *dispatch.Queue
	controller *automation.Controller
	scheduler  *scheduler.Scheduler
	notifier   notify.Notifier

	// Observability
	metrics       *metrics.PrometheusMetrics
	metricsServer *metrics.Server

	// IPC handler
	ipcHandler *ipc.Handler

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	started bool
	ownsPID bool // PID файл записан этим процессом
}

// Option configures an App.
type Option func(*App)

// WithConfigPath makes the scheduler re-read its section from path on every
// check and re-check whenever the file changes.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithRemote replaces the DevTools connection.
func WithRemote(client remote.Client, surfaces automation.SurfaceFactory) Option {
	return func(a *App) {
		a.client = client
		a.surfaces = surfaces
	}
}

// WithNotifier replaces the notifier built from [notify].
func WithNotifier(n notify.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

func WithClock(c clock.Clock) Option {
	return func(a *App) { a.clock = c }
}

// New creates a new App instance. Components are created in Initialize.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *App {
	a := &App{
		config: cfg,
		logger: log,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run initializes the application, blocks until ctx is cancelled and then
// shuts down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		_ = a.Shutdown()
		return err
	}

	a.logger.Info("Application is running")
	<-ctx.Done()

	return a.Shutdown()
}
