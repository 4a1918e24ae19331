// Package automation is the start/stop surface of the daemon. The Controller
// resolves the requested mode, validates the IDE and runs the matching poll
// loop under a fresh session.
package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/clock"
	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/metrics"
	"github.com/aatumaykin/agentpilot/internal/notify"
	"github.com/aatumaykin/agentpilot/internal/poll"
	"github.com/aatumaykin/agentpilot/internal/remote"
	"github.com/aatumaykin/agentpilot/internal/session"
	"github.com/aatumaykin/agentpilot/internal/variant"
)

// ErrUnsupportedIDE is returned when background mode is requested for an IDE
// without conversation tab support.
var ErrUnsupportedIDE = errors.New("ide does not support background mode")

// StartConfig is the start request.
type StartConfig struct {
	IsBackgroundMode bool          `json:"is_background_mode"`
	IsPro            bool          `json:"is_pro"`
	IDE              string        `json:"ide"`
	PollInterval     time.Duration `json:"poll_interval"`
}

// Mode resolves the requested mode: background needs both flags.
func (c StartConfig) Mode() session.Mode {
	if c.IsBackgroundMode && c.IsPro {
		return session.ModeBackground
	}
	return session.ModeSimple
}

// StartConfigFrom builds a start request from the [automation] section.
func StartConfigFrom(cfg config.AutomationConfig) StartConfig {
	return StartConfig{
		IsBackgroundMode: cfg.IsBackgroundMode,
		IsPro:            cfg.IsPro,
		IDE:              cfg.IDE,
		PollInterval:     cfg.PollInterval(),
	}
}

// SurfaceFactory returns the surface for an IDE profile.
type SurfaceFactory func(profile variant.Profile) (remote.Surface, error)

// Deps are the Controller collaborators.
type Deps struct {
	State      *session.State
	Surfaces   SurfaceFactory
	Classifier *classifier.Classifier
	Notifier   notify.Notifier
	Clock      clock.Clock
	Logger     *logger.Logger
	Metrics    *metrics.PrometheusMetrics
	Timings    poll.Timings
}

// Controller starts and stops the automation loops.
type Controller struct {
	state      *session.State
	runner     *poll.Runner
	surfaces   SurfaceFactory
	classifier *classifier.Classifier
	notifier   notify.Notifier
	clock      clock.Clock
	logger     *logger.Logger
	metrics    *metrics.PrometheusMetrics
	timings    poll.Timings

	mu sync.Mutex
}

func New(d Deps) *Controller {
	if d.State == nil {
		d.State = session.New()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Timings == (poll.Timings{}) {
		d.Timings = poll.DefaultTimings
	}

	c := &Controller{
		state:      d.State,
		runner:     poll.NewRunner(d.State, d.Logger),
		surfaces:   d.Surfaces,
		classifier: d.Classifier,
		notifier:   d.Notifier,
		clock:      d.Clock,
		logger:     d.Logger,
		metrics:    d.Metrics,
		timings:    d.Timings,
	}
	d.State.OnChange(func(s session.Snapshot) {
		c.metrics.SetSessionID(s.SessionID)
	})
	return c
}

// Start runs the loop for the resolved mode. Starting the mode that is
// already running is a no-op; a different mode restarts under a new session
// id. Loops outlive ctx and end only through Stop or a later Start.
func (c *Controller) Start(ctx context.Context, cfg StartConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mode := cfg.Mode()
	profile, err := c.resolveProfile(ctx, cfg.IDE, mode)
	if err != nil {
		return err
	}

	if snap := c.state.Snapshot(); snap.IsRunning && snap.Mode == mode {
		c.logger.Debug("automation already running in requested mode",
			logger.Field{Key: "mode", Value: string(mode)},
			logger.Field{Key: "session_id", Value: snap.SessionID})
		return nil
	}

	surface, err := c.surfaces(profile)
	if err != nil {
		return fmt.Errorf("failed to attach to %s: %w", profile.Name, err)
	}

	var loop poll.Loop
	switch mode {
	case session.ModeBackground:
		loop = poll.NewBackgroundLoop(surface, c.classifier, c.clock, c.timings, c.logger, c.metrics)
	default:
		loop = poll.NewSimpleLoop(surface, c.classifier, c.clock, cfg.PollInterval, c.logger, c.metrics)
	}

	id := c.runner.Start(context.WithoutCancel(ctx), loop)
	c.logger.Info("automation started",
		logger.Field{Key: "mode", Value: string(mode)},
		logger.Field{Key: "ide", Value: profile.Name},
		logger.Field{Key: "session_id", Value: id})
	return nil
}

// Stop stops the running loop and fully resets the session. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasRunning := c.state.Snapshot().IsRunning
	c.runner.Stop()
	if wasRunning {
		c.logger.Info("automation stopped")
	}
}

// State returns the current session snapshot.
func (c *Controller) State() session.Snapshot {
	return c.state.Snapshot()
}

func (c *Controller) resolveProfile(ctx context.Context, ide string, mode session.Mode) (variant.Profile, error) {
	profile, err := variant.Lookup(ide)

	if mode == session.ModeBackground {
		if err == nil && profile.SupportsTabs {
			return profile, nil
		}
		cfgErr := fmt.Errorf("%w: %s", ErrUnsupportedIDE, ide)
		c.logger.Error("background mode not started", cfgErr, logger.Field{Key: "ide", Value: ide})
		msg := notify.Message{
			Level: notify.LevelError,
			Title: "Background mode unavailable",
			Text:  fmt.Sprintf("IDE %q does not support background mode. Supported: %v", ide, tabIDEs()),
		}
		if nerr := c.notifier.Notify(ctx, msg); nerr != nil {
			c.logger.Warn("failed to send notification", logger.Field{Key: "error", Value: nerr.Error()})
		}
		return variant.Profile{}, cfgErr
	}

	if err != nil {
		c.logger.Warn("unknown ide, using default profile",
			logger.Field{Key: "ide", Value: ide},
			logger.Field{Key: "default", Value: variant.Default})
		return variant.Lookup(variant.Default)
	}
	return profile, nil
}

func tabIDEs() []string {
	var names []string
	for _, name := range variant.Names() {
		if p, err := variant.Lookup(name); err == nil && p.SupportsTabs {
			names = append(names, name)
		}
	}
	return names
}
