package builders

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/metrics"
)

type MetricsBuilder struct {
	config *config.Config
	logger *logger.Logger
}

func NewMetricsBuilder(cfg *config.Config, log *logger.Logger) *MetricsBuilder {
	return &MetricsBuilder{
		config: cfg,
		logger: log,
	}
}

// Build returns nil metrics and a nil server when metrics are disabled; every
// recorder is nil-safe.
func (b *MetricsBuilder) Build() (*metrics.PrometheusMetrics, *metrics.Server, error) {
	if !b.config.Metrics.Enabled {
		return nil, nil, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.InitPrometheusMetrics(b.config.Metrics.Namespace, reg)

	srv, err := metrics.NewServer(b.config.Metrics.Listen, reg, b.logger.Component("metrics"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start metrics server: %w", err)
	}
	srv.Start()
	return m, srv, nil
}
