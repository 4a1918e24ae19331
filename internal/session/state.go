// Package session holds the automation session state shared by the
// controller, the poll loops and the status surface.
//
// Each start of a loop obtains a Lease bound to a strictly increasing session
// id. A loop must check its lease before every action and exit silently once
// the lease is no longer valid.
package session

import (
	"context"
	"sync"
)

// Mode is the automation mode of the running session.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeSimple     Mode = "simple"
	ModeBackground Mode = "background"
)

// Snapshot is a copy of the session state.
type Snapshot struct {
	IsRunning        bool            `json:"is_running" yaml:"is_running"`
	SessionID        uint64          `json:"session_id" yaml:"session_id"`
	Mode             Mode            `json:"mode" yaml:"mode"`
	TabNames         []string        `json:"tab_names" yaml:"tab_names"`
	ActiveTab        string          `json:"active_tab,omitempty" yaml:"active_tab,omitempty"`
	CompletionStatus map[string]bool `json:"completion_status" yaml:"completion_status"`
}

// State is the mutable session state. The zero value is not usable; use New.
type State struct {
	mu         sync.RWMutex
	running    bool
	sessionID  uint64
	mode       Mode
	tabNames   []string
	activeTab  string
	completion map[string]bool
	cancel     context.CancelFunc
	observer   func(Snapshot)
}

// New returns a state with defaults: stopped, mode none, session id 0.
func New() *State {
	return &State{
		mode:       ModeNone,
		tabNames:   []string{},
		completion: make(map[string]bool),
	}
}

// OnChange registers the single observer invoked after start, stop and reset.
func (s *State) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

// Begin supersedes any previous lease, marks the session running in mode and
// increments the session id. The lease context derives from parent.
func (s *State) Begin(parent context.Context, mode Mode) *Lease {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.running = true
	s.sessionID++
	s.mode = mode
	lease := &Lease{id: s.sessionID, ctx: ctx, state: s}
	obs, snap := s.observer, s.snapshotLocked()
	s.mu.Unlock()

	if obs != nil {
		obs(snap)
	}
	return lease
}

// Halt marks the session stopped and invalidates the current lease but keeps
// the session id, tab names and completion data. Used before a restart.
func (s *State) Halt() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	obs, snap := s.observer, s.snapshotLocked()
	s.mu.Unlock()

	if obs != nil {
		obs(snap)
	}
}

// haltSession halts only while id is still the live running session.
func (s *State) haltSession(id uint64) bool {
	s.mu.Lock()
	if !s.validLocked(id) {
		s.mu.Unlock()
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	obs, snap := s.observer, s.snapshotLocked()
	s.mu.Unlock()

	if obs != nil {
		obs(snap)
	}
	return true
}

// Reset fully resets the state to defaults and invalidates the current lease.
func (s *State) Reset() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	s.sessionID = 0
	s.mode = ModeNone
	s.tabNames = []string{}
	s.activeTab = ""
	s.completion = make(map[string]bool)
	obs, snap := s.observer, s.snapshotLocked()
	s.mu.Unlock()

	if obs != nil {
		obs(snap)
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	completion := make(map[string]bool, len(s.completion))
	for k, v := range s.completion {
		completion[k] = v
	}
	return Snapshot{
		IsRunning:        s.running,
		SessionID:        s.sessionID,
		Mode:             s.mode,
		TabNames:         append([]string{}, s.tabNames...),
		ActiveTab:        s.activeTab,
		CompletionStatus: completion,
	}
}

// valid reports whether id is the live running session. Caller holds mu.
func (s *State) validLocked(id uint64) bool {
	return s.running && s.sessionID == id
}

func (s *State) setTabs(id uint64, names []string, active string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked(id) {
		return false
	}
	s.tabNames = append([]string{}, names...)
	s.activeTab = active
	return true
}

func (s *State) markComplete(id uint64, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked(id) {
		return false
	}
	s.completion[name] = true
	return true
}
