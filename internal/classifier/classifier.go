// Package classifier decides whether a described interactive control is an
// actionable "accept-like" control. It works on plain descriptors and never
// touches a live rendering surface, so every rule is testable offline.
package classifier

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/logger"
)

const (
	// MaxTextLength guards against matching large structural containers.
	MaxTextLength = 50
	// MinOpacity is the opacity a control must exceed to count as visible.
	MinOpacity = 0.1
)

// Control describes one interactive element of the remote surface.
type Control struct {
	Ref               string  `json:"ref"`  // opaque handle passed back to Click
	Text              string  `json:"text"` // visible label
	Width             float64 `json:"width"`
	Height            float64 `json:"height"`
	Hidden            bool    `json:"hidden"` // display:none, visibility:hidden or hidden attribute
	Opacity           float64 `json:"opacity"`
	Disabled          bool    `json:"disabled"`
	PointerEventsNone bool    `json:"pointerEventsNone"`
}

// Visible reports a non-zero layout box, not hidden, opacity above threshold.
func (c Control) Visible() bool {
	return c.Width > 0 && c.Height > 0 && !c.Hidden && c.Opacity > MinOpacity
}

// Clickable reports that the control is enabled and receives pointer events.
func (c Control) Clickable() bool {
	return !c.Disabled && !c.PointerEventsNone
}

// Classifier holds the immutable accept and reject lists.
type Classifier struct {
	accept []Pattern
	reject []string
	logger *logger.Logger
}

// Default returns a classifier with only the built-in patterns.
func Default(log *logger.Logger) *Classifier {
	return &Classifier{
		accept: append([]Pattern(nil), DefaultAccept...),
		reject: append([]string(nil), DefaultReject...),
		logger: log,
	}
}

// New builds a classifier from the built-in lists extended by cfg.
func New(cfg config.ClassifierConfig, log *logger.Logger) (*Classifier, error) {
	c := Default(log)

	extra, err := compilePatterns(cfg.ExtraAccept)
	if err != nil {
		return nil, err
	}
	c.accept = append(c.accept, extra...)

	for _, r := range cfg.ExtraReject {
		if n := Normalize(r); n != "" {
			c.reject = append(c.reject, n)
		}
	}

	return c, nil
}

// Normalize applies NFKC, folds typographic apostrophes, collapses
// whitespace and lowercases.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.NewReplacer("’", "'", "‘", "'").Replace(text)
	text = strings.Join(strings.Fields(text), " ")
	return strings.ToLower(text)
}

// Classify applies the rules in order: length, positive match, reject veto,
// visibility and clickability.
func (c *Classifier) Classify(text string, visible, clickable bool) bool {
	normalized := Normalize(text)
	if normalized == "" || utf8.RuneCountInString(normalized) > MaxTextLength {
		return false
	}

	matched := false
	for _, p := range c.accept {
		if p.matches(normalized) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, r := range c.reject {
		if strings.Contains(normalized, r) {
			c.logger.Debug("control rejected by negative pattern",
				logger.Field{Key: "text", Value: normalized},
				logger.Field{Key: "pattern", Value: r})
			return false
		}
	}

	if !visible || !clickable {
		c.logger.Debug("accept-like control not actionable",
			logger.Field{Key: "text", Value: normalized},
			logger.Field{Key: "visible", Value: visible},
			logger.Field{Key: "clickable", Value: clickable})
		return false
	}

	return true
}

// Accepts classifies a control descriptor.
func (c *Classifier) Accepts(ctrl Control) bool {
	return c.Classify(ctrl.Text, ctrl.Visible(), ctrl.Clickable())
}

// Filter returns the accepted controls in their original order.
func (c *Classifier) Filter(ctrls []Control) []Control {
	var out []Control
	for _, ctrl := range ctrls {
		if c.Accepts(ctrl) {
			out = append(out, ctrl)
		}
	}
	return out
}

// Patterns returns a description of the active accept and reject lists.
func (c *Classifier) Patterns() (accept []string, reject []string) {
	for _, p := range c.accept {
		accept = append(accept, p.String())
	}
	return accept, append([]string(nil), c.reject...)
}
