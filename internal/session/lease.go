package session

import (
	"context"
	"time"

	"github.com/aatumaykin/agentpilot/internal/clock"
)

// Lease is a loop's claim on one session id.
type Lease struct {
	id    uint64
	ctx   context.Context
	state *State
}

// ID returns the captured session id.
func (l *Lease) ID() uint64 {
	return l.id
}

// Context is cancelled as soon as the lease is superseded or reset.
func (l *Lease) Context() context.Context {
	return l.ctx
}

// Valid reports whether the lease still owns the live running session.
// The context check rejects a stale lease even if a reset brought the
// counter back to the same value.
func (l *Lease) Valid() bool {
	if l.ctx.Err() != nil {
		return false
	}
	l.state.mu.RLock()
	defer l.state.mu.RUnlock()
	return l.state.validLocked(l.id)
}

// Pause sleeps for d on clk and reports whether the lease is still valid.
func (l *Lease) Pause(clk clock.Clock, d time.Duration) bool {
	if err := clk.Sleep(l.ctx, d); err != nil {
		return false
	}
	return l.Valid()
}

// SetTabs overwrites tab names and the active tab name if the lease is valid.
func (l *Lease) SetTabs(names []string, active string) bool {
	if l.ctx.Err() != nil {
		return false
	}
	return l.state.setTabs(l.id, names, active)
}

// MarkComplete records a completion marker for tab name if the lease is valid.
func (l *Lease) MarkComplete(name string) bool {
	if l.ctx.Err() != nil {
		return false
	}
	return l.state.markComplete(l.id, name)
}

// Halt marks the session stopped if this lease still owns it. A superseded
// lease leaves the newer session untouched.
func (l *Lease) Halt() bool {
	if l.ctx.Err() != nil {
		return false
	}
	return l.state.haltSession(l.id)
}
