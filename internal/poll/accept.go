package poll

import (
	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/metrics"
	"github.com/aatumaykin/agentpilot/internal/remote"
	"github.com/aatumaykin/agentpilot/internal/session"
)

// clicker clicks accept-like controls on a surface.
type clicker struct {
	surface    remote.Surface
	classifier *classifier.Classifier
	metrics    *metrics.PrometheusMetrics
	logger     *logger.Logger
}

// clickAccepted clicks every accepted control, re-checking the lease before
// each click. It returns the number of successful clicks.
func (c *clicker) clickAccepted(lease *session.Lease) int {
	ctrls, err := c.surface.Controls(lease.Context())
	if err != nil {
		if lease.Valid() {
			c.logger.Warn("failed to enumerate controls", logger.Field{Key: "error", Value: err.Error()})
		}
		return 0
	}

	clicked := 0
	for _, ctrl := range c.classifier.Filter(ctrls) {
		if !lease.Valid() {
			return clicked
		}
		if err := c.surface.Click(lease.Context(), ctrl.Ref); err != nil {
			c.logger.Warn("click failed",
				logger.Field{Key: "ref", Value: ctrl.Ref},
				logger.Field{Key: "text", Value: ctrl.Text},
				logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		clicked++
		c.metrics.Click(metrics.ClickAccept)
		c.logger.Info("clicked control",
			logger.Field{Key: "ref", Value: ctrl.Ref},
			logger.Field{Key: "text", Value: ctrl.Text})
	}
	return clicked
}
