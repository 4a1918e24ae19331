package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, "~/.agentpilot", cfg.Workspace.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "http://127.0.0.1:9222", cfg.Remote.CDPURL)
	assert.Equal(t, 10*time.Second, cfg.Remote.CallTimeout())
	assert.Equal(t, "cursor", cfg.Automation.IDE)
	assert.Equal(t, time.Second, cfg.Automation.PollInterval())
	assert.Equal(t, SchedulerModeInterval, cfg.Scheduler.Mode)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "agentpilot", cfg.Metrics.Namespace)
}

func TestParse(t *testing.T) {
	t.Setenv("AP_TEST_TOKEN", "123456:abcdefghijklmnop")

	data := `
[logging]
level = "debug"
format = "text"

[automation]
is_background_mode = true
is_pro = true
ide = "antigravity"
poll_interval_ms = 500

[scheduler]
enabled = true
value = "15"
prompt = "continue"

[[classifier.extra_accept]]
text = "proceed"
match = "exact"

[notify.telegram]
enabled = true
token = "${AP_TEST_TOKEN}"
chat_id = 42
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Automation.IsBackgroundMode)
	assert.Equal(t, "antigravity", cfg.Automation.IDE)
	assert.Equal(t, 500*time.Millisecond, cfg.Automation.PollInterval())
	assert.Equal(t, "continue", cfg.Scheduler.Prompt)
	require.Len(t, cfg.Classifier.ExtraAccept, 1)
	assert.Equal(t, "proceed", cfg.Classifier.ExtraAccept[0].Text)
	assert.Equal(t, "123456:abcdefghijklmnop", cfg.Notify.Telegram.Token)
	assert.Empty(t, cfg.Validate())
}

func TestParse_InvalidTOML(t *testing.T) {
	_, err := Parse([]byte("[logging\nlevel ="))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "logging.level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "path traversal",
			mutate:  func(c *Config) { c.Workspace.Path = "/tmp/../etc" },
			wantErr: "path traversal",
		},
		{
			name:    "poll interval too small",
			mutate:  func(c *Config) { c.Automation.PollIntervalMS = 10 },
			wantErr: "poll_interval_ms",
		},
		{
			name: "scheduler without prompt",
			mutate: func(c *Config) {
				c.Scheduler.Enabled = true
				c.Scheduler.Value = "5"
			},
			wantErr: "scheduler.prompt",
		},
		{
			name: "scheduler with bad value",
			mutate: func(c *Config) {
				c.Scheduler.Enabled = true
				c.Scheduler.Value = "soon"
				c.Scheduler.Prompt = "go"
			},
			wantErr: "invalid scheduler value",
		},
		{
			name: "scheduler with unknown mode",
			mutate: func(c *Config) {
				c.Scheduler.Enabled = true
				c.Scheduler.Mode = "cron"
				c.Scheduler.Value = "5"
				c.Scheduler.Prompt = "go"
			},
			wantErr: "unsupported scheduler mode",
		},
		{
			name: "disabled scheduler is not validated",
			mutate: func(c *Config) {
				c.Scheduler.Value = "garbage"
			},
		},
		{
			name: "bad pattern kind",
			mutate: func(c *Config) {
				c.Classifier.ExtraAccept = []PatternConfig{{Text: "go", Match: "glob"}}
			},
			wantErr: "extra_accept[0].match",
		},
		{
			name: "telegram token malformed",
			mutate: func(c *Config) {
				c.Notify.Telegram = TelegramConfig{Enabled: true, Token: "not-a-token", ChatID: 1}
			},
			wantErr: "invalid format",
		},
		{
			name: "telegram chat id missing",
			mutate: func(c *Config) {
				c.Notify.Telegram = TelegramConfig{Enabled: true, Token: "123456:abcdefghijklmnop"}
			},
			wantErr: "chat_id",
		},
		{
			name: "metrics without listen",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Listen = ""
			},
			wantErr: "metrics.listen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			joined := make([]string, 0, len(errs))
			for _, e := range errs {
				joined = append(joined, e.Error())
			}
			assert.Contains(t, strings.Join(joined, "\n"), tt.wantErr)
		})
	}
}

func TestSchedulerConfig_Interval(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{value: "1", want: time.Minute},
		{value: " 30 ", want: 30 * time.Minute},
		{value: "0.5", want: 30 * time.Second},
		{value: "0", wantErr: true},
		{value: "-2", wantErr: true},
		{value: "", wantErr: true},
		{value: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := SchedulerConfig{Mode: SchedulerModeInterval, Value: tt.value}.Interval()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("AP_SET", "from-env")

	assert.Equal(t, "from-env", expandEnv("${AP_SET}"))
	assert.Equal(t, "from-env", expandEnv("${AP_SET:fallback}"))
	assert.Equal(t, "fallback", expandEnv("${AP_UNSET_VAR:fallback}"))
	assert.Equal(t, "literal", expandEnv("literal"))
	assert.Equal(t, "${broken", expandEnv("${broken"))
}

func TestMaskTelegramToken(t *testing.T) {
	assert.Equal(t, "", maskTelegramToken(""))
	assert.Equal(t, "123456:abcd********mnop", maskTelegramToken("123456:abcdefghijklmnop"))
	assert.Equal(t, "***", maskTelegramToken("short"))
}

func TestFileSource_RereadsOnEveryCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nenabled = false\n"), 0600))

	src := NewFileSource(path)
	first, err := src.LoadScheduler()
	require.NoError(t, err)
	assert.False(t, first.Enabled)
	assert.Equal(t, SchedulerModeInterval, first.Mode)

	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nenabled = true\nvalue = \"2\"\nprompt = \"next\"\n"), 0600))

	second, err := src.LoadScheduler()
	require.NoError(t, err)
	assert.True(t, second.Enabled)
	assert.Equal(t, "next", second.Prompt)
}

func TestFileSource_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileSource(filepath.Join(dir, "missing.toml")).LoadScheduler()
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("[scheduler\n"), 0600))
	_, err = NewFileSource(broken).LoadScheduler()
	assert.Error(t, err)
}

func TestStaticSource(t *testing.T) {
	cfg, err := StaticSource{Config: SchedulerConfig{Enabled: true, Value: "1", Prompt: "p"}}.LoadScheduler()
	require.NoError(t, err)
	assert.Equal(t, SchedulerModeInterval, cfg.Mode)
}
