// Package poll runs the session-guarded automation loops: the simple loop
// that clicks accept controls on the focused panel and the background loop
// that also rotates through conversation tabs.
package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/session"
)

// DefaultHandoverTimeout bounds how long Start waits for the previous loop.
const DefaultHandoverTimeout = 2 * time.Second

// Loop is one automation loop body. Run returns once the lease is invalid.
type Loop interface {
	Mode() session.Mode
	Run(lease *session.Lease)
}

// Runner starts loops under fresh session leases and never lets a new loop
// overlap a previous one it superseded.
type Runner struct {
	state   *session.State
	logger  *logger.Logger
	timeout time.Duration

	mu   sync.Mutex
	done chan struct{}
}

func NewRunner(state *session.State, log *logger.Logger) *Runner {
	return &Runner{
		state:   state,
		logger:  log,
		timeout: DefaultHandoverTimeout,
	}
}

// Start stops the running loop, if any, waits briefly for it to exit, then
// begins a new session and runs loop in its own goroutine. It returns the new
// session id.
func (r *Runner) Start(ctx context.Context, loop Loop) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		r.state.Halt()
		r.waitLocked()
	}

	lease := r.state.Begin(ctx, loop.Mode())
	done := make(chan struct{})
	r.done = done

	log := r.logger.With(
		logger.Field{Key: "session_id", Value: lease.ID()},
		logger.Field{Key: "mode", Value: string(loop.Mode())})
	log.Info("poll loop started")

	go func() {
		defer close(done)
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("poll loop panic recovered", fmt.Errorf("panic: %v", rec))
				// Сессия не должна числиться запущенной без цикла
				if lease.Halt() {
					log.Warn("session halted after loop panic")
				}
			}
		}()
		loop.Run(lease)
		log.Info("poll loop exited")
	}()

	return lease.ID()
}

// Stop fully resets the session and waits briefly for the loop to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Reset()
	if r.done != nil {
		r.waitLocked()
	}
}

func (r *Runner) waitLocked() {
	select {
	case <-r.done:
	case <-time.After(r.timeout):
		// Старый цикл завершится сам при следующей проверке lease
		r.logger.Warn("previous poll loop did not exit in time",
			logger.Field{Key: "timeout", Value: r.timeout.String()})
	}
	r.done = nil
}
