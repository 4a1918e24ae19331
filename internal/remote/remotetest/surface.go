package remotetest

import (
	"context"
	"sync"

	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/remote"
)

// Surface is a scriptable remote.Surface that records clicks.
type Surface struct {
	mu              sync.Mutex
	controls        []classifier.Control
	tabs            []remote.Tab
	clicks          []string
	newConversation int
	controlsCalls   int
	controlsErr     error
	tabsErr         error
	clickErr        error
	onControls      func()
}

func NewSurface() *Surface {
	return &Surface{}
}

func (s *Surface) SetControls(ctrls ...classifier.Control) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls = append([]classifier.Control(nil), ctrls...)
}

func (s *Surface) SetTabs(tabs ...remote.Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs = append([]remote.Tab(nil), tabs...)
}

func (s *Surface) SetControlsErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controlsErr = err
}

func (s *Surface) SetTabsErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabsErr = err
}

func (s *Surface) SetClickErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clickErr = err
}

// OnControls runs fn at the start of every Controls call, outside the lock.
func (s *Surface) OnControls(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onControls = fn
}

func (s *Surface) Controls(ctx context.Context) ([]classifier.Control, error) {
	s.mu.Lock()
	hook := s.onControls
	s.controlsCalls++
	s.mu.Unlock()

	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controlsErr != nil {
		return nil, s.controlsErr
	}
	return append([]classifier.Control(nil), s.controls...), nil
}

func (s *Surface) Click(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clickErr != nil {
		return s.clickErr
	}
	s.clicks = append(s.clicks, ref)
	return nil
}

func (s *Surface) NewConversation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newConversation++
	return nil
}

func (s *Surface) Tabs(ctx context.Context) ([]remote.Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tabsErr != nil {
		return nil, s.tabsErr
	}
	return append([]remote.Tab(nil), s.tabs...), nil
}

// Clicks returns clicked refs in order.
func (s *Surface) Clicks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clicks...)
}

func (s *Surface) NewConversationClicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newConversation
}

func (s *Surface) ControlsCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlsCalls
}
