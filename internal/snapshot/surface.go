package snapshot

import (
	"context"
	"fmt"
	"sync"

	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/remote"
)

// Surface serves a parsed Document as a remote.Surface. Clicks are recorded,
// never applied.
type Surface struct {
	doc *Document

	mu     sync.Mutex
	clicks []string
}

func NewSurface(doc *Document) *Surface {
	return &Surface{doc: doc}
}

func (s *Surface) Controls(ctx context.Context) ([]classifier.Control, error) {
	return append([]classifier.Control(nil), s.doc.Controls...), nil
}

func (s *Surface) Click(ctx context.Context, ref string) error {
	if !s.known(ref) {
		return fmt.Errorf("%w: %s", remote.ErrControlNotFound, ref)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append(s.clicks, ref)
	return nil
}

func (s *Surface) NewConversation(ctx context.Context) error {
	if !s.doc.HasNewConversation {
		return fmt.Errorf("%w: new conversation", remote.ErrControlNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append(s.clicks, "new-conversation")
	return nil
}

func (s *Surface) Tabs(ctx context.Context) ([]remote.Tab, error) {
	return append([]remote.Tab(nil), s.doc.Tabs...), nil
}

// Clicks returns the recorded click refs in order.
func (s *Surface) Clicks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clicks...)
}

func (s *Surface) known(ref string) bool {
	for _, c := range s.doc.Controls {
		if c.Ref == ref {
			return true
		}
	}
	for _, t := range s.doc.Tabs {
		if t.Ref == ref {
			return true
		}
	}
	return false
}
