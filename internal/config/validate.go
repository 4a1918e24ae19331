package config

import (
	"fmt"
	"strings"
)

func (s SchedulerConfig) validate() []error {
	if !s.Enabled {
		return nil
	}

	var errs []error
	if _, err := s.Interval(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}
	if strings.TrimSpace(s.Prompt) == "" {
		errs = append(errs, fmt.Errorf("scheduler.prompt is required when scheduler is enabled"))
	}
	return errs
}

func (c ClassifierConfig) validate() []error {
	var errs []error
	for i, p := range c.ExtraAccept {
		if strings.TrimSpace(p.Text) == "" {
			errs = append(errs, fmt.Errorf("classifier.extra_accept[%d].text cannot be empty", i))
		}
		switch p.Match {
		case "", MatchExact, MatchContains, MatchRegex:
		default:
			errs = append(errs, fmt.Errorf("classifier.extra_accept[%d].match must be one of: exact, contains, regex (got %q)", i, p.Match))
		}
	}
	for i, r := range c.ExtraReject {
		if strings.TrimSpace(r) == "" {
			errs = append(errs, fmt.Errorf("classifier.extra_reject[%d] cannot be empty", i))
		}
	}
	return errs
}

func validateTelegramToken(token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return fmt.Errorf("telegram token has invalid format (expected format: <bot_id>:<token>, got: %s)", maskTelegramToken(token))
	}

	botID := parts[0]
	if len(botID) < 3 || len(botID) > 15 {
		return fmt.Errorf("telegram token has invalid bot ID length (expected 3-15 digits, got %d digits)", len(botID))
	}
	for _, r := range botID {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only, got: %s)", botID)
		}
	}

	if len(parts[1]) < 10 || len(parts[1]) > 50 {
		return fmt.Errorf("telegram token has invalid token length (expected 10-50 characters, got %d)", len(parts[1]))
	}

	return nil
}

func validatePath(path, fieldName string) error {
	if strings.HasPrefix(path, "~") {
		return nil
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}

	return nil
}
