// Package variant describes the IDE flavours the daemon can drive. Each
// profile carries the CSS selectors locating the assistant panel parts.
package variant

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownIDE is returned for an IDE name with no profile.
var ErrUnknownIDE = errors.New("unknown ide")

// Selectors locate the parts of the assistant panel.
type Selectors struct {
	Panel           string // root of the agent/chat panel
	Input           string // prompt input (contenteditable or textarea)
	Submit          string // send button, optional; Enter is used otherwise
	Busy            string // element present while the assistant is working
	Controls        string // candidate interactive controls
	NewConversation string // "new conversation" control
	Tab             string // conversation tab
	TabLabel        string // label inside a tab; empty means the tab text
	Completion      string // completion marker rendered next to a tab
}

// Profile is one supported IDE.
type Profile struct {
	Name         string
	TargetMatch  string // substring of the DevTools target title or URL
	SupportsTabs bool
	Selectors    Selectors
}

var registry = map[string]Profile{
	"cursor": {
		Name:         "cursor",
		TargetMatch:  "workbench",
		SupportsTabs: true,
		Selectors: Selectors{
			Panel:           ".composer-bar, #workbench\\.parts\\.auxiliarybar",
			Input:           ".aislash-editor-input[contenteditable='true']",
			Submit:          ".send-with-mode button, [aria-label='Send']",
			Busy:            "[data-stop-button='true'], .composer-stop-button, [aria-label='Stop']",
			Controls:        "button, [role='button'], .anysphere-button, .anysphere-secondary-button",
			NewConversation: "[aria-label='New Chat'], [aria-label='New Agent']",
			Tab:             ".composer-tab, [role='tab']",
			TabLabel:        ".composer-tab-label",
			Completion:      ".composer-tab-unread, .codicon-check",
		},
	},
	"antigravity": {
		Name:         "antigravity",
		TargetMatch:  "workbench",
		SupportsTabs: true,
		Selectors: Selectors{
			Panel:           "#antigravity\\.agentPanel, .agent-panel",
			Input:           "[contenteditable='true'][role='textbox'], textarea",
			Submit:          "[aria-label='Send message']",
			Busy:            "[aria-label='Cancel generation'], .agent-thinking",
			Controls:        "button, [role='button']",
			NewConversation: "[aria-label='Start new conversation'], [data-tooltip-id='new-conversation-tooltip']",
			Tab:             "[role='tab'], .conversation-tab",
			TabLabel:        "",
			Completion:      ".codicon-check, .conversation-done",
		},
	},
	"vscode": {
		Name:         "vscode",
		TargetMatch:  "workbench",
		SupportsTabs: false,
		Selectors: Selectors{
			Panel:           ".interactive-session, #workbench\\.panel\\.chat",
			Input:           ".interactive-input-editor textarea, .interactive-input-editor [contenteditable='true']",
			Submit:          "[aria-label^='Send']",
			Busy:            ".interactive-request.progress, [aria-label='Cancel']",
			Controls:        "a.monaco-button, button, [role='button']",
			NewConversation: "[aria-label^='New Chat']",
		},
	},
}

// Default is the profile used when no ide is configured.
const Default = "cursor"

// Lookup returns the profile for name, case-insensitively.
func Lookup(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = Default
	}
	p, ok := registry[key]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownIDE, name)
	}
	return p, nil
}

// Names returns the registered IDE names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
