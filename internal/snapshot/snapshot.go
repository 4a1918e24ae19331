// Package snapshot parses saved agent panel HTML into control descriptors and
// conversation tabs. It powers the offline inspect command and serves as a
// deterministic surface in tests.
package snapshot

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/remote"
	"github.com/aatumaykin/agentpilot/internal/variant"
)

// Layout attributes a dump writer may attach to carry the rendered box size.
const (
	attrWidth  = "data-width"
	attrHeight = "data-height"
)

// Document is a parsed panel dump.
type Document struct {
	Controls           []classifier.Control
	Tabs               []remote.Tab
	HasNewConversation bool
	Busy               bool
}

// Parse reads an HTML dump and extracts everything the profile can locate.
func Parse(r io.Reader, profile variant.Profile) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	root := doc.Selection
	if sel := profile.Selectors.Panel; sel != "" {
		if panel := doc.Find(sel).First(); panel.Length() > 0 {
			root = panel
		}
	}

	d := &Document{}
	root.Find(profile.Selectors.Controls).Each(func(i int, s *goquery.Selection) {
		d.Controls = append(d.Controls, control(s, i))
	})

	if profile.SupportsTabs && profile.Selectors.Tab != "" {
		root.Find(profile.Selectors.Tab).Each(func(i int, s *goquery.Selection) {
			d.Tabs = append(d.Tabs, tab(s, i, profile.Selectors))
		})
	}

	if sel := profile.Selectors.NewConversation; sel != "" {
		d.HasNewConversation = doc.Find(sel).Length() > 0
	}
	if sel := profile.Selectors.Busy; sel != "" {
		d.Busy = doc.Find(sel).Length() > 0
	}

	return d, nil
}

func control(s *goquery.Selection, index int) classifier.Control {
	style := parseStyle(s.AttrOr("style", ""))

	c := classifier.Control{
		Ref:               ref(s, "ctrl", index),
		Text:              label(s),
		Width:             dimension(s, attrWidth, style["width"]),
		Height:            dimension(s, attrHeight, style["height"]),
		Hidden:            hidden(s, style),
		Opacity:           1,
		Disabled:          disabled(s),
		PointerEventsNone: style["pointer-events"] == "none",
	}
	if v, ok := style["opacity"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Opacity = f
		}
	}
	return c
}

func tab(s *goquery.Selection, index int, sel variant.Selectors) remote.Tab {
	style := parseStyle(s.AttrOr("style", ""))

	name := ""
	if sel.TabLabel != "" {
		name = collapse(s.Find(sel.TabLabel).First().Text())
	}
	if name == "" {
		name = label(s)
	}

	background := style["background-color"]
	if background == "" {
		background = style["background"]
	}

	completed := false
	if sel.Completion != "" {
		completed = s.Find(sel.Completion).Length() > 0 || s.Next().Is(sel.Completion)
	}

	return remote.Tab{
		Ref:        ref(s, "tab", index),
		Name:       name,
		Selected:   s.AttrOr("aria-selected", "") == "true" || s.HasClass("active") || s.HasClass("selected"),
		Background: background,
		Completed:  completed,
	}
}

func ref(s *goquery.Selection, prefix string, index int) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return id
	}
	return fmt.Sprintf("%s-%d", prefix, index)
}

func label(s *goquery.Selection) string {
	if text := collapse(s.Text()); text != "" {
		return text
	}
	if v := s.AttrOr("aria-label", ""); v != "" {
		return collapse(v)
	}
	return collapse(s.AttrOr("title", ""))
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// dimension prefers the explicit layout attribute, then an inline px size.
// Without either the element counts as laid out.
func dimension(s *goquery.Selection, attr, inline string) float64 {
	if v, ok := s.Attr(attr); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if inline != "" {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(inline, "px"), 64); err == nil {
			return f
		}
	}
	return 1
}

func hidden(s *goquery.Selection, style map[string]string) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if s.AttrOr("aria-hidden", "") == "true" {
		return true
	}
	return style["display"] == "none" || style["visibility"] == "hidden"
}

func disabled(s *goquery.Selection) bool {
	if _, ok := s.Attr("disabled"); ok {
		return true
	}
	return s.AttrOr("aria-disabled", "") == "true"
}

// parseStyle splits an inline style attribute into lowercased declarations.
func parseStyle(style string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important")))
		if name != "" {
			out[name] = value
		}
	}
	return out
}
