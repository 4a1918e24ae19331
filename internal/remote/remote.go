// Package remote defines the contracts of the externally owned surface the
// daemon drives: a Client for prompt delivery and busy probing, and a Surface
// for control enumeration, clicks and conversation tabs.
package remote

import (
	"context"
	"errors"

	"github.com/aatumaykin/agentpilot/internal/classifier"
)

var (
	// ErrNotConnected is returned when no remote target is attached.
	ErrNotConnected = errors.New("remote surface not connected")
	// ErrControlNotFound is returned when a clicked ref no longer resolves.
	ErrControlNotFound = errors.New("control not found")
)

// Client delivers prompts and reports whether the assistant is busy.
type Client interface {
	SendPrompt(ctx context.Context, text string) error
	IsBusy(ctx context.Context) (bool, error)
}

// Tab is one conversation tab of the agent panel.
type Tab struct {
	Ref        string `json:"ref"`
	Name       string `json:"name"`
	Selected   bool   `json:"selected"`   // aria-selected or an explicit active class
	Background string `json:"background"` // computed background color
	Completed  bool   `json:"completed"`  // a completion marker is rendered next to the tab
}

// Surface is the interactive side of the remote UI used by the poll loops.
type Surface interface {
	Controls(ctx context.Context) ([]classifier.Control, error)
	Click(ctx context.Context, ref string) error
	NewConversation(ctx context.Context) error
	Tabs(ctx context.Context) ([]Tab, error)
}
