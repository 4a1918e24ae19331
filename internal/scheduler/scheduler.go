// Package scheduler periodically submits a configured prompt to the dispatch
// queue. The [scheduler] section is re-read on every check so edits apply
// without a restart.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/agentpilot/internal/clock"
	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/dispatch"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/metrics"
	"github.com/aatumaykin/agentpilot/internal/notify"
)

// TickSpec is the cron spec of the internal check tick.
const TickSpec = "@every 1s"

var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrNotStarted     = errors.New("scheduler not started")
	ErrNoQueue        = errors.New("scheduler has no dispatch queue")
)

// ConfigSource provides the current scheduler configuration.
type ConfigSource interface {
	LoadScheduler() (config.SchedulerConfig, error)
}

// Submitter accepts prompts for delivery. *dispatch.Queue satisfies it.
type Submitter interface {
	Submit(text string) (*dispatch.Receipt, error)
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	Interval    string    `json:"interval,omitempty" yaml:"interval,omitempty"`
	LastRunTime time.Time `json:"last_run_time" yaml:"last_run_time"`
	NextRunTime time.Time `json:"next_run_time,omitempty" yaml:"next_run_time,omitempty"`
	Running     bool      `json:"running" yaml:"running"`
}

// Scheduler triggers the configured prompt every interval.
type Scheduler struct {
	source   ConfigSource
	queue    Submitter
	notifier notify.Notifier
	clock    clock.Clock
	logger   *logger.Logger
	metrics  *metrics.PrometheusMetrics

	mu          sync.Mutex
	lastRunTime time.Time
	lastProblem string
	cron        *cron.Cron
	cancel      context.CancelFunc
}

// New creates a scheduler. notifier and m may be nil.
func New(source ConfigSource, queue Submitter, notifier notify.Notifier, clk clock.Clock, log *logger.Logger, m *metrics.PrometheusMetrics) *Scheduler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Scheduler{
		source:   source,
		queue:    queue,
		notifier: notifier,
		clock:    clk,
		logger:   log,
		metrics:  m,
	}
}

// LoadConfig re-reads the scheduler configuration. Never cached.
func (s *Scheduler) LoadConfig() (config.SchedulerConfig, error) {
	return s.source.LoadScheduler()
}

// Start loads the configuration, resets the last run time to now and arms the
// one second check tick. The first trigger happens one interval after Start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return ErrAlreadyStarted
	}

	cfg, err := s.LoadConfig()
	if err != nil {
		s.logger.Warn("failed to load scheduler config", logger.Field{Key: "error", Value: err.Error()})
	}

	s.lastRunTime = s.clock.Now()
	// Каждый запуск тика видит только свой контекст
	tickCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(TickSpec, func() { s.Check(tickCtx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule check tick: %w", err)
	}
	c.Start()
	s.cron = c

	s.logger.Info("scheduler started",
		logger.Field{Key: "enabled", Value: cfg.Enabled},
		logger.Field{Key: "value", Value: cfg.Value})
	return nil
}

// Stop cancels the tick and waits for a running check to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	c := s.cron
	if c == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.cron = nil
	s.cancel()
	s.mu.Unlock()

	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// Check triggers the scheduled prompt when it is enabled and at least one
// interval has elapsed since the last run. It reports whether it triggered.
func (s *Scheduler) Check(ctx context.Context) bool {
	cfg, err := s.LoadConfig()
	if err != nil {
		s.problem("failed to load scheduler config", err)
		return false
	}
	if !cfg.Enabled || strings.TrimSpace(cfg.Prompt) == "" || s.queue == nil {
		return false
	}

	interval, err := cfg.Interval()
	if err != nil {
		s.problem("invalid scheduler interval", err)
		return false
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.lastProblem = ""
	if now.Sub(s.lastRunTime) < interval {
		s.mu.Unlock()
		return false
	}
	s.markRunLocked(now)
	s.mu.Unlock()

	if err := s.dispatch(ctx, cfg.Prompt); err != nil {
		s.logger.Error("scheduled prompt not queued", err)
	}
	return true
}

// Trigger records a run at now and queues prompt immediately.
func (s *Scheduler) Trigger(ctx context.Context, prompt string) error {
	if s.queue == nil {
		return ErrNoQueue
	}
	s.mu.Lock()
	s.markRunLocked(s.clock.Now())
	s.mu.Unlock()
	return s.dispatch(ctx, prompt)
}

// QueuePrompt submits text through the shared dispatch queue.
func (s *Scheduler) QueuePrompt(text string) (*dispatch.Receipt, error) {
	if s.queue == nil {
		return nil, ErrNoQueue
	}
	return s.queue.Submit(text)
}

// LastRunTime returns the time of the last trigger, or of Start.
func (s *Scheduler) LastRunTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunTime
}

// Status reports the current configuration and run times.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := Status{LastRunTime: s.lastRunTime, Running: s.cron != nil}
	s.mu.Unlock()

	cfg, err := s.LoadConfig()
	if err != nil {
		return st
	}
	st.Enabled = cfg.Enabled
	if interval, err := cfg.Interval(); err == nil {
		st.Interval = interval.String()
		if st.Enabled && !st.LastRunTime.IsZero() {
			st.NextRunTime = st.LastRunTime.Add(interval)
		}
	}
	return st
}

// markRunLocked only ever moves lastRunTime forward.
func (s *Scheduler) markRunLocked(now time.Time) {
	if now.After(s.lastRunTime) {
		s.lastRunTime = now
	}
}

func (s *Scheduler) dispatch(ctx context.Context, prompt string) error {
	receipt, err := s.queue.Submit(prompt)
	if err != nil {
		return fmt.Errorf("submit scheduled prompt: %w", err)
	}

	s.metrics.SchedulerTrigger()
	s.logger.Info("scheduled prompt queued", logger.Field{Key: "command_id", Value: receipt.ID()})

	msg := notify.Message{
		Level: notify.LevelInfo,
		Title: "Scheduled prompt queued",
		Text:  preview(prompt),
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Warn("failed to send notification", logger.Field{Key: "error", Value: err.Error()})
	}
	return nil
}

// problem logs a configuration problem once until it changes.
func (s *Scheduler) problem(msg string, err error) {
	s.mu.Lock()
	repeated := s.lastProblem == err.Error()
	s.lastProblem = err.Error()
	s.mu.Unlock()

	if !repeated {
		s.logger.Warn(msg, logger.Field{Key: "error", Value: err.Error()})
	}
}

func preview(text string) string {
	const limit = 80
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return text
}
