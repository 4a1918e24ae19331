package poll

import (
	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/clock"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/metrics"
	"github.com/aatumaykin/agentpilot/internal/remote"
	"github.com/aatumaykin/agentpilot/internal/session"
)

// BackgroundLoop accepts controls and rotates through conversation tabs.
//
// One cycle: click accepted controls, click "new conversation", read the
// tabs into the session state, then switch to the next tab. The lease is
// checked before every step and after every pause.
type BackgroundLoop struct {
	clicker
	clock   clock.Clock
	timings Timings

	rotation int
}

func NewBackgroundLoop(surface remote.Surface, cls *classifier.Classifier, clk clock.Clock, timings Timings, log *logger.Logger, m *metrics.PrometheusMetrics) *BackgroundLoop {
	return &BackgroundLoop{
		clicker: clicker{surface: surface, classifier: cls, metrics: m, logger: log},
		clock:   clk,
		timings: timings,
	}
}

func (l *BackgroundLoop) Mode() session.Mode {
	return session.ModeBackground
}

func (l *BackgroundLoop) Run(lease *session.Lease) {
	for lease.Valid() {
		if !l.cycle(lease) {
			return
		}
		l.metrics.PollCycle(string(session.ModeBackground))
	}
}

// cycle runs one rotation step and reports whether the lease survived it.
func (l *BackgroundLoop) cycle(lease *session.Lease) bool {
	l.clickAccepted(lease)
	if !lease.Pause(l.clock, l.timings.AfterAccept) {
		return false
	}

	if err := l.surface.NewConversation(lease.Context()); err != nil {
		if !lease.Valid() {
			return false
		}
		l.logger.Debug("new conversation click failed", logger.Field{Key: "error", Value: err.Error()})
	} else {
		l.metrics.Click(metrics.ClickNewConversation)
	}
	if !lease.Pause(l.clock, l.timings.AfterNewConversation) {
		return false
	}

	tabs, err := l.surface.Tabs(lease.Context())
	if err != nil {
		if !lease.Valid() {
			return false
		}
		// Прошлый список вкладок остаётся до следующего успешного чтения
		l.logger.Warn("failed to read tabs", logger.Field{Key: "error", Value: err.Error()})
		tabs = nil
	} else {
		l.recordTabs(lease, tabs)
	}

	if len(tabs) > 0 {
		if !lease.Valid() {
			return false
		}
		l.rotation = (l.rotation + 1) % len(tabs)
		next := tabs[l.rotation]
		if err := l.surface.Click(lease.Context(), next.Ref); err != nil {
			l.logger.Warn("tab switch failed",
				logger.Field{Key: "tab", Value: next.Name},
				logger.Field{Key: "error", Value: err.Error()})
		} else {
			l.metrics.Click(metrics.ClickTab)
			l.logger.Debug("switched tab", logger.Field{Key: "tab", Value: next.Name})
		}
	}

	return lease.Pause(l.clock, l.timings.AfterTabSwitch)
}

func (l *BackgroundLoop) recordTabs(lease *session.Lease, tabs []remote.Tab) {
	names := make([]string, len(tabs))
	for i, t := range tabs {
		names[i] = t.Name
	}

	activeName := ""
	active := ActiveTab(tabs)
	if active >= 0 {
		activeName = tabs[active].Name
	}
	if !lease.SetTabs(names, activeName) {
		return
	}
	if active >= 0 && tabs[active].Completed {
		if lease.MarkComplete(activeName) {
			l.logger.Info("conversation completed", logger.Field{Key: "tab", Value: activeName})
		}
	}
}
