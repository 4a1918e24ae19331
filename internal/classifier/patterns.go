package classifier

import (
	"fmt"
	"strings"

	"github.com/wasilibs/go-re2"

	"github.com/aatumaykin/agentpilot/internal/config"
)

// Pattern is a single accept pattern. Exact patterns must equal the
// normalized text; the others match as a substring, or as a regular
// expression when compiled from a "regex" config entry.
type Pattern struct {
	Text  string
	Exact bool
	re    *re2.Regexp
}

func (p Pattern) matches(normalized string) bool {
	switch {
	case p.re != nil:
		return p.re.MatchString(normalized)
	case p.Exact:
		return normalized == p.Text
	default:
		return strings.Contains(normalized, p.Text)
	}
}

func (p Pattern) String() string {
	switch {
	case p.re != nil:
		return "regex:" + p.Text
	case p.Exact:
		return "exact:" + p.Text
	default:
		return "contains:" + p.Text
	}
}

// DefaultAccept is the built-in positive pattern list.
var DefaultAccept = []Pattern{
	{Text: "accept"},
	{Text: "always allow"},
	{Text: "run", Exact: true},
	{Text: "run command"},
	{Text: "run this"},
	{Text: "apply"},
	{Text: "execute"},
	{Text: "resume"},
	{Text: "retry"},
	{Text: "try again"},
}

// DefaultReject lists substrings that veto any positive match.
var DefaultReject = []string{"skip", "reject", "cancel", "discard", "deny", "close", "other"}

// compilePatterns превращает конфигурационные шаблоны в Pattern
func compilePatterns(cfgs []config.PatternConfig) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(cfgs))
	for _, pc := range cfgs {
		text := Normalize(pc.Text)
		if text == "" {
			return nil, fmt.Errorf("empty classifier pattern")
		}

		switch pc.Match {
		case config.MatchExact:
			patterns = append(patterns, Pattern{Text: text, Exact: true})
		case config.MatchContains, "":
			patterns = append(patterns, Pattern{Text: text})
		case config.MatchRegex:
			// Выражение компилируется как есть: нормализация могла бы сломать синтаксис.
			re, err := re2.Compile(strings.TrimSpace(pc.Text))
			if err != nil {
				return nil, fmt.Errorf("invalid classifier regex %q: %w", pc.Text, err)
			}
			patterns = append(patterns, Pattern{Text: pc.Text, re: re})
		default:
			return nil, fmt.Errorf("unknown pattern match kind: %s", pc.Match)
		}
	}
	return patterns, nil
}
