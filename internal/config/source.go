package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileSource reads the [scheduler] section straight from the config file.
// Nothing is cached: every call hits the disk so that edits made while the
// daemon runs are picked up by the next scheduler check.
type FileSource struct {
	path string
}

// NewFileSource создаёт источник конфигурации планировщика
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path возвращает путь к файлу конфигурации
func (s *FileSource) Path() string {
	return s.path
}

// LoadScheduler перечитывает секцию [scheduler]
func (s *FileSource) LoadScheduler() (SchedulerConfig, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return SchedulerConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc struct {
		Scheduler SchedulerConfig `toml:"scheduler"`
	}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return SchedulerConfig{}, fmt.Errorf("failed to parse scheduler section: %w", err)
	}

	applySchedulerDefaults(&doc.Scheduler)
	doc.Scheduler.Prompt = expandEnv(doc.Scheduler.Prompt)
	return doc.Scheduler, nil
}

// StaticSource returns a fixed scheduler configuration. Used when the daemon
// runs without a config file.
type StaticSource struct {
	Config SchedulerConfig
}

// LoadScheduler возвращает зафиксированную конфигурацию
func (s StaticSource) LoadScheduler() (SchedulerConfig, error) {
	cfg := s.Config
	applySchedulerDefaults(&cfg)
	return cfg, nil
}
