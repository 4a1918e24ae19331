package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/agentpilot/internal/automation"
	"github.com/aatumaykin/agentpilot/internal/clock"
	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/dispatch"
	"github.com/aatumaykin/agentpilot/internal/ipc"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/notify"
	"github.com/aatumaykin/agentpilot/internal/remote"
	"github.com/aatumaykin/agentpilot/internal/remote/remotetest"
	"github.com/aatumaykin/agentpilot/internal/session"
	"github.com/aatumaykin/agentpilot/internal/variant"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingNotifier) Notify(ctx context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingNotifier) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var titles []string
	for _, m := range r.msgs {
		titles = append(titles, m.Title)
	}
	return titles
}

type harness struct {
	app      *App
	cfg      *config.Config
	client   *remotetest.Client
	surface  *remotetest.Surface
	notifier *recordingNotifier
	clock    *clock.Fake
}

// Helper function to create test config
func createTestConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf("[workspace]\npath = %q\n%s", t.TempDir(), extra)))
	require.NoError(t, err)
	return cfg
}

func newHarness(t *testing.T, cfg *config.Config, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		cfg:      cfg,
		client:   remotetest.NewClient(),
		surface:  remotetest.NewSurface(),
		notifier: &recordingNotifier{},
		clock:    clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	surfaces := func(variant.Profile) (remote.Surface, error) { return h.surface, nil }
	opts = append([]Option{
		WithRemote(h.client, surfaces),
		WithNotifier(h.notifier),
		WithClock(h.clock),
	}, opts...)
	h.app = New(cfg, logger.Nop(), opts...)
	t.Cleanup(func() { _ = h.app.Shutdown() })
	return h
}

func (h *harness) send(t *testing.T, req ipc.Request) *ipc.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	resp, err := ipc.Send(ctx, ipc.GetSocketPath(h.cfg.Workspace.Path), req)
	require.NoError(t, err)
	return resp
}

func TestApp_ShutdownNotStarted(t *testing.T) {
	a := New(createTestConfig(t, ""), logger.Nop())
	assert.NoError(t, a.Shutdown())
	assert.False(t, a.started)
}

func TestApp_InitializeAndShutdown(t *testing.T) {
	h := newHarness(t, createTestConfig(t, ""))
	ws := h.cfg.Workspace.Path

	require.NoError(t, h.app.Initialize(context.Background()))
	assert.FileExists(t, ipc.GetPIDPath(ws))
	assert.Contains(t, h.notifier.Titles(), "Started")

	assert.Error(t, h.app.Initialize(context.Background()), "second Initialize must fail")

	require.NoError(t, h.app.Shutdown())
	assert.NoFileExists(t, ipc.GetPIDPath(ws))
	assert.NoFileExists(t, ipc.GetSocketPath(ws))

	// повторный вызов безопасен
	assert.NoError(t, h.app.Shutdown())
}

func TestApp_SubmitAndStatusOverIPC(t *testing.T) {
	h := newHarness(t, createTestConfig(t, ""))
	require.NoError(t, h.app.Initialize(context.Background()))

	resp := h.send(t, ipc.Request{Type: ipc.TypeSubmit, Text: "hello", Wait: true})
	assert.Equal(t, dispatch.StatusSent, resp.CommandStatus)
	assert.NotEmpty(t, resp.CommandID)
	assert.Equal(t, []string{"hello"}, h.client.Sent())

	resp = h.send(t, ipc.Request{Type: ipc.TypeStatus})
	require.NotNil(t, resp.Status)
	assert.False(t, resp.Status.Session.IsRunning)
	assert.Equal(t, session.ModeNone, resp.Status.Session.Mode)
	assert.False(t, resp.Status.Scheduler.Enabled)
	assert.True(t, resp.Status.Scheduler.Running)
}

func TestApp_StartStopOverIPC(t *testing.T) {
	h := newHarness(t, createTestConfig(t, ""))
	require.NoError(t, h.app.Initialize(context.Background()))

	resp := h.send(t, ipc.Request{Type: ipc.TypeStart})
	assert.Equal(t, uint64(1), resp.SessionID)
	assert.Equal(t, session.ModeSimple, h.app.Status().Session.Mode)

	// тот же режим не перезапускает сессию
	resp = h.send(t, ipc.Request{Type: ipc.TypeStart})
	assert.Equal(t, uint64(1), resp.SessionID)

	resp = h.send(t, ipc.Request{Type: ipc.TypeStart, Background: true, Pro: true})
	assert.Equal(t, uint64(2), resp.SessionID)
	assert.Equal(t, session.ModeBackground, h.app.Status().Session.Mode)

	h.send(t, ipc.Request{Type: ipc.TypeStop})
	snap := h.app.Status().Session
	assert.False(t, snap.IsRunning)
	assert.Equal(t, uint64(0), snap.SessionID)
}

func TestApp_StartUnsupportedIDE(t *testing.T) {
	h := newHarness(t, createTestConfig(t, ""))
	require.NoError(t, h.app.Initialize(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := ipc.Send(ctx, ipc.GetSocketPath(h.cfg.Workspace.Path),
		ipc.Request{Type: ipc.TypeStart, Background: true, Pro: true, IDE: "vscode"})
	assert.ErrorContains(t, err, automation.ErrUnsupportedIDE.Error())
	assert.False(t, h.app.Status().Session.IsRunning)
	assert.Contains(t, h.notifier.Titles(), "Background mode unavailable")
}

func TestApp_StartAutomationDefaults(t *testing.T) {
	h := newHarness(t, createTestConfig(t, "[automation]\nide = \"antigravity\"\n"))
	require.NoError(t, h.app.Initialize(context.Background()))

	require.NoError(t, h.app.StartAutomation(context.Background(), automation.StartConfig{IsBackgroundMode: true, IsPro: true}))
	assert.Equal(t, session.ModeBackground, h.app.Status().Session.Mode)
	h.app.StopAutomation()
}

func TestApp_Autostart(t *testing.T) {
	h := newHarness(t, createTestConfig(t, "[automation]\nautostart = true\n"))
	require.NoError(t, h.app.Initialize(context.Background()))

	snap := h.app.Status().Session
	assert.True(t, snap.IsRunning)
	assert.Equal(t, session.ModeSimple, snap.Mode)
	assert.Equal(t, uint64(1), snap.SessionID)
}

func TestApp_RefusesWorkspaceOfLiveDaemon(t *testing.T) {
	h := newHarness(t, createTestConfig(t, ""))
	ws := h.cfg.Workspace.Path
	require.NoError(t, ipc.WritePID(ws, os.Getppid()))

	err := h.app.Initialize(context.Background())
	assert.ErrorIs(t, err, ipc.ErrAlreadyRunning)

	require.NoError(t, h.app.Shutdown())
	pid, err := ipc.ReadPID(ws)
	require.NoError(t, err)
	assert.Equal(t, os.Getppid(), pid, "foreign PID file must survive")
}

func TestApp_SchedulerRereadsConfigFile(t *testing.T) {
	cfg := createTestConfig(t, "")
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nenabled = false\n"), 0o600))

	h := newHarness(t, cfg, WithConfigPath(path))
	require.NoError(t, h.app.Initialize(context.Background()))

	h.clock.Advance(2 * time.Minute)
	require.NoError(t, os.WriteFile(path,
		[]byte("[scheduler]\nenabled = true\nvalue = \"1\"\nprompt = \"continue\"\n"), 0o600))

	require.Eventually(t, func() bool {
		sent := h.client.Sent()
		return len(sent) == 1 && sent[0] == "continue"
	}, 3*time.Second, 10*time.Millisecond)

	assert.True(t, h.app.Status().Scheduler.Enabled)
	assert.Equal(t, h.clock.Now(), h.app.Status().Scheduler.LastRunTime)
}

func TestApp_MetricsEndpoint(t *testing.T) {
	h := newHarness(t, createTestConfig(t, "[metrics]\nenabled = true\nlisten = \"127.0.0.1:0\"\n"))
	require.NoError(t, h.app.Initialize(context.Background()))
	require.NotNil(t, h.app.metricsServer)

	h.send(t, ipc.Request{Type: ipc.TypeSubmit, Text: "x", Wait: true})

	resp, err := http.Get("http://" + h.app.metricsServer.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	h := newHarness(t, createTestConfig(t, ""))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.app.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(ipc.GetSocketPath(h.cfg.Workspace.Path))
		return err == nil
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.NoFileExists(t, ipc.GetPIDPath(h.cfg.Workspace.Path))
}
