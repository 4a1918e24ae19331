package poll

import (
	"time"

	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/clock"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/metrics"
	"github.com/aatumaykin/agentpilot/internal/remote"
	"github.com/aatumaykin/agentpilot/internal/session"
)

// SimpleLoop clicks accept controls on the focused panel every interval.
type SimpleLoop struct {
	clicker
	clock    clock.Clock
	interval time.Duration
}

func NewSimpleLoop(surface remote.Surface, cls *classifier.Classifier, clk clock.Clock, interval time.Duration, log *logger.Logger, m *metrics.PrometheusMetrics) *SimpleLoop {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &SimpleLoop{
		clicker:  clicker{surface: surface, classifier: cls, metrics: m, logger: log},
		clock:    clk,
		interval: interval,
	}
}

func (l *SimpleLoop) Mode() session.Mode {
	return session.ModeSimple
}

func (l *SimpleLoop) Run(lease *session.Lease) {
	for lease.Valid() {
		l.clickAccepted(lease)
		if !lease.Valid() {
			return
		}
		l.metrics.PollCycle(string(session.ModeSimple))
		if !lease.Pause(l.clock, l.interval) {
			return
		}
	}
}
