package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/dispatch"
	"github.com/aatumaykin/agentpilot/internal/ipc"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/scheduler"
	"github.com/aatumaykin/agentpilot/internal/session"
	"github.com/aatumaykin/agentpilot/internal/variant"
)

const panelFixture = "../../internal/snapshot/testdata/cursor_panel.html"

func TestCommandStructure(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "submit", "status", "start", "stop", "inspect", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	validate, _, err := rootCmd.Find([]string{"config", "validate"})
	require.NoError(t, err)
	assert.Equal(t, "validate", validate.Name())
}

func TestStartCmdFlags(t *testing.T) {
	t.Cleanup(func() {
		startBackground, startPro, startIDE, startPollInterval = false, false, "", 0
	})

	require.NoError(t, startCmd.ParseFlags([]string{"--background", "--pro", "--ide", "antigravity", "--poll-interval", "250ms"}))
	assert.True(t, startBackground)
	assert.True(t, startPro)
	assert.Equal(t, "antigravity", startIDE)
	assert.Equal(t, 250*time.Millisecond, startPollInterval)
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "JSON", "yaml"} {
		_, err := parseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := parseFormat("xml")
	assert.Error(t, err)
}

func sampleStatus() ipc.Status {
	last := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return ipc.Status{
		Version: "1.2.3",
		Session: session.Snapshot{
			IsRunning:        true,
			SessionID:        4,
			Mode:             session.ModeBackground,
			TabNames:         []string{"Refactor", "Tests"},
			ActiveTab:        "Tests",
			CompletionStatus: map[string]bool{"Tests": true},
		},
		Queue: dispatch.Snapshot{
			Items:      []dispatch.Command{{ID: "a", Text: "next", Status: dispatch.StatusPending}},
			Current:    &dispatch.Command{ID: "b", Text: "now", Status: dispatch.StatusSending},
			Processing: true,
		},
		Scheduler: scheduler.Status{
			Enabled:     true,
			Interval:    "30m0s",
			LastRunTime: last,
			NextRunTime: last.Add(30 * time.Minute),
			Running:     true,
		},
	}
}

func TestWriteStatus_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatus(&buf, sampleStatus(), formatText))

	out := buf.String()
	assert.Contains(t, out, "Version:    1.2.3")
	assert.Contains(t, out, "running (mode=background, session=4)")
	assert.Contains(t, out, "Refactor, *Tests ✓")
	assert.Contains(t, out, "1 pending, sending b (processing)")
	assert.Contains(t, out, "every 30m0s")
	assert.Contains(t, out, "next run")
}

func TestWriteStatus_Stopped(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatus(&buf, ipc.Status{Version: "x"}, formatText))

	assert.Contains(t, buf.String(), "Automation: stopped")
	assert.Contains(t, buf.String(), "Queue:      0 pending\n")
	assert.Contains(t, buf.String(), "Scheduler:  disabled")
}

func TestWriteStatus_Structured(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatus(&buf, sampleStatus(), formatJSON))

	var decoded ipc.Status
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, uint64(4), decoded.Session.SessionID)
	assert.Equal(t, "b", decoded.Queue.Current.ID)

	buf.Reset()
	require.NoError(t, writeStatus(&buf, sampleStatus(), formatYAML))

	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &generic))
	sess := generic["session"].(map[string]any)
	assert.Equal(t, "background", sess["mode"])
	assert.Equal(t, 4, sess["session_id"])
}

func TestInspect(t *testing.T) {
	profile, err := variant.Lookup("cursor")
	require.NoError(t, err)
	f, err := os.Open(panelFixture)
	require.NoError(t, err)
	defer f.Close()

	report, err := inspect(context.Background(), f, profile, classifier.Default(logger.Nop()))
	require.NoError(t, err)

	assert.Equal(t, "cursor", report.IDE)
	assert.True(t, report.Busy)
	assert.True(t, report.HasNewConversation)
	assert.Equal(t, []string{"accept-btn", "ctrl-7"}, report.Clicked)
	assert.Equal(t, "Tests", report.ActiveTab)
	require.Len(t, report.Tabs, 3)

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, report))
	assert.Contains(t, buf.String(), "accept-btn")
	assert.Contains(t, buf.String(), "* Tests ✓")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { configPath, workspacePath = "", "" })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:")
}

func TestConfigValidateCmd(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.toml")
	require.NoError(t, os.WriteFile(good, []byte("[workspace]\npath = \""+dir+"\"\n"), 0o600))
	out, err := execute(t, "config", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte(strings.Join([]string{
		"[workspace]",
		"path = \"" + dir + "\"",
		"[[classifier.extra_accept]]",
		"text = \"([\"",
		"match = \"regex\"",
	}, "\n")), 0o600))
	out, err = execute(t, "config", "validate", bad)
	require.Error(t, err)
	assert.Contains(t, out, "validation failed")
}

func TestInspectCmd_JSON(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--workspace", dir, "--config", writeConfig(t, dir), "inspect", panelFixture, "--ide", "cursor", "-o", "json")
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, []string{"accept-btn", "ctrl-7"}, report.Clicked)
}

func TestStatusCmd_NoDaemon(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", writeConfig(t, dir), "status", "--timeout", "1s")
	assert.ErrorContains(t, err, "failed to connect to daemon")
}

func writeConfig(t *testing.T, workspace string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[workspace]\npath = \""+workspace+"\"\n"), 0o600))
	return path
}
