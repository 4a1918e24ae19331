// Package config provides configuration loading and validation for agentpilot.
// It supports TOML configuration files with environment variable expansion,
// default values, and comprehensive validation.
//
// Configuration structure:
//   - [workspace]: directory holding the PID file and IPC socket
//   - [logging]: Logging level, format, and output
//   - [remote]: remote surface endpoint (Chrome DevTools Protocol)
//   - [automation]: start parameters for the accept/poll loops
//   - [scheduler]: periodic prompt (re-read from disk on every check)
//   - [classifier]: extra accept / reject patterns
//   - [notify]: user-visible notification channels
//   - [metrics]: Prometheus endpoint
//
// Environment variables:
// Environment variables can be referenced using ${VAR} or ${VAR:default} syntax.
// For example: token = "${TELEGRAM_TOKEN:}"
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the main application configuration.
type Config struct {
	Workspace  WorkspaceConfig  `toml:"workspace"`
	Logging    LoggingConfig    `toml:"logging"`
	Remote     RemoteConfig     `toml:"remote"`
	Automation AutomationConfig `toml:"automation"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	Classifier ClassifierConfig `toml:"classifier"`
	Notify     NotifyConfig     `toml:"notify"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// WorkspaceConfig представляет конфигурацию workspace
type WorkspaceConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// RemoteConfig описывает подключение к удалённой поверхности (IDE)
type RemoteConfig struct {
	CDPURL             string `toml:"cdp_url"`
	TargetMatch        string `toml:"target_match"`
	CallTimeoutSeconds int    `toml:"call_timeout_seconds"`
}

// CallTimeout возвращает таймаут одного вызова к поверхности
func (r RemoteConfig) CallTimeout() time.Duration {
	return time.Duration(r.CallTimeoutSeconds) * time.Second
}

// AutomationConfig представляет параметры запуска автоматизации
type AutomationConfig struct {
	Autostart        bool   `toml:"autostart"`
	IsBackgroundMode bool   `toml:"is_background_mode"`
	IsPro            bool   `toml:"is_pro"`
	IDE              string `toml:"ide"`
	PollIntervalMS   int    `toml:"poll_interval_ms"`
}

// PollInterval возвращает интервал simple-режима
func (a AutomationConfig) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalMS) * time.Millisecond
}

// SchedulerModeInterval is the only supported scheduler mode.
const SchedulerModeInterval = "interval"

// SchedulerConfig представляет конфигурацию периодической отправки prompt.
// Value хранится строкой и трактуется как количество минут.
type SchedulerConfig struct {
	Enabled bool   `toml:"enabled"`
	Mode    string `toml:"mode"`
	Value   string `toml:"value"`
	Prompt  string `toml:"prompt"`
}

// Interval parses Value as a number of minutes.
func (s SchedulerConfig) Interval() (time.Duration, error) {
	if s.Mode != "" && s.Mode != SchedulerModeInterval {
		return 0, fmt.Errorf("unsupported scheduler mode: %s (expected: %s)", s.Mode, SchedulerModeInterval)
	}
	raw := strings.TrimSpace(s.Value)
	if raw == "" {
		return 0, fmt.Errorf("scheduler value is empty")
	}
	minutes, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid scheduler value %q: %w", s.Value, err)
	}
	if minutes <= 0 {
		return 0, fmt.Errorf("scheduler value must be positive, got %q", s.Value)
	}
	return time.Duration(minutes * float64(time.Minute)), nil
}

// Pattern match kinds for configured classifier patterns.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
	MatchRegex    = "regex"
)

// PatternConfig описывает дополнительный шаблон классификатора
type PatternConfig struct {
	Text  string `toml:"text"`
	Match string `toml:"match"` // exact, contains, regex
}

// ClassifierConfig представляет расширения списков шаблонов
type ClassifierConfig struct {
	ExtraAccept []PatternConfig `toml:"extra_accept"`
	ExtraReject []string        `toml:"extra_reject"`
}

// NotifyConfig представляет конфигурацию каналов уведомлений
type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

// TelegramConfig представляет конфигурацию Telegram уведомлений
type TelegramConfig struct {
	Enabled            bool   `toml:"enabled"`
	Token              string `toml:"token"`
	ChatID             int64  `toml:"chat_id"`
	SendTimeoutSeconds int    `toml:"send_timeout_seconds"`
}

// MetricsConfig представляет конфигурацию Prometheus endpoint
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Listen    string `toml:"listen"`
	Namespace string `toml:"namespace"`
}
