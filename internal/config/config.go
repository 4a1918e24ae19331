package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load загружает конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse разбирает TOML, применяет значения по умолчанию и переменные окружения
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Validate проверяет валидность конфигурации
func (c *Config) Validate() []error {
	var errors []error

	if c.Workspace.Path == "" {
		errors = append(errors, fmt.Errorf("workspace.path is required"))
	} else if err := validatePath(c.Workspace.Path, "workspace.path"); err != nil {
		errors = append(errors, err)
	}

	// Проверка logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}
	if c.Logging.Output == "" {
		errors = append(errors, fmt.Errorf("logging.output is required"))
	}

	if c.Remote.CallTimeoutSeconds < 1 {
		errors = append(errors, fmt.Errorf("remote.call_timeout_seconds must be >= 1"))
	}

	if c.Automation.IDE == "" {
		errors = append(errors, fmt.Errorf("automation.ide is required"))
	}
	if c.Automation.PollIntervalMS < 100 {
		errors = append(errors, fmt.Errorf("automation.poll_interval_ms must be >= 100 (got %d)", c.Automation.PollIntervalMS))
	}

	errors = append(errors, c.Scheduler.validate()...)
	errors = append(errors, c.Classifier.validate()...)

	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.Token == "" {
			errors = append(errors, fmt.Errorf("notify.telegram.token is required when telegram is enabled"))
		} else if err := validateTelegramToken(c.Notify.Telegram.Token); err != nil {
			errors = append(errors, err)
		}
		if c.Notify.Telegram.ChatID == 0 {
			errors = append(errors, fmt.Errorf("notify.telegram.chat_id is required when telegram is enabled"))
		}
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errors = append(errors, fmt.Errorf("metrics.listen is required when metrics are enabled"))
	}

	return errors
}

// applyDefaults применяет значения по умолчанию
func applyDefaults(c *Config) {
	if c.Workspace.Path == "" {
		c.Workspace.Path = "~/.agentpilot"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Remote.CDPURL == "" {
		c.Remote.CDPURL = "http://127.0.0.1:9222"
	}
	if c.Remote.CallTimeoutSeconds == 0 {
		c.Remote.CallTimeoutSeconds = 10
	}

	if c.Automation.IDE == "" {
		c.Automation.IDE = "cursor"
	}
	if c.Automation.PollIntervalMS == 0 {
		c.Automation.PollIntervalMS = 1000
	}

	applySchedulerDefaults(&c.Scheduler)

	if c.Notify.Telegram.SendTimeoutSeconds == 0 {
		c.Notify.Telegram.SendTimeoutSeconds = 10
	}

	if c.Metrics.Listen == "" {
		c.Metrics.Listen = "127.0.0.1:9464"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "agentpilot"
	}
}

func applySchedulerDefaults(s *SchedulerConfig) {
	if s.Mode == "" {
		s.Mode = SchedulerModeInterval
	}
}

// expandEnvVars расширяет переменные окружения в конфигурации
func expandEnvVars(c *Config) {
	c.Notify.Telegram.Token = expandEnv(c.Notify.Telegram.Token)
	c.Remote.CDPURL = expandEnv(c.Remote.CDPURL)

	c.Workspace.Path = expandHome(expandEnv(c.Workspace.Path))
	if c.Logging.Output != "stdout" && c.Logging.Output != "stderr" {
		c.Logging.Output = expandHome(c.Logging.Output)
	}
}

// expandEnv расширяет переменную окружения формата ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		if val := os.Getenv(parts[0]); val != "" {
			return val
		}
		return parts[1]
	}

	// Без значения по умолчанию
	return os.Getenv(content)
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
