package poll

import (
	"strings"

	"github.com/aatumaykin/agentpilot/internal/remote"
)

// ActiveTab returns the index of the active tab or -1.
//
// An explicitly selected tab wins. Otherwise the active tab is the only one
// whose background is not transparent and differs from all the others.
func ActiveTab(tabs []remote.Tab) int {
	for i, t := range tabs {
		if t.Selected {
			return i
		}
	}

	counts := make(map[string]int, len(tabs))
	for _, t := range tabs {
		counts[normalizeColor(t.Background)]++
	}

	found := -1
	for i, t := range tabs {
		bg := normalizeColor(t.Background)
		if transparent(bg) || counts[bg] != 1 {
			continue
		}
		if found >= 0 {
			return -1
		}
		found = i
	}
	return found
}

func normalizeColor(c string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c)), " ", "")
}

func transparent(c string) bool {
	switch c {
	case "", "transparent", "none", "initial", "inherit", "rgba(0,0,0,0)":
		return true
	}
	return false
}
