package infrastructure

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"snowalert.app/internal/ports"
)

// PrometheusMetricsCollector implements the MetricsCollector port.
// The job has no inbound surface, so metrics go to a Pushgateway after each run when one is configured.
type PrometheusMetricsCollector struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	snowDetected prometheus.Counter
	forecastDays prometheus.Gauge
	lastRun      prometheus.Gauge
	pusher       *push.Pusher
	logger       ports.Logger
}

// MetricsCollectorConfig holds configuration for creating the metrics collector
type MetricsCollectorConfig struct {
	PushgatewayURL string
	JobName        string
	Logger         ports.Logger
	// Client overrides the HTTP client used for pushing
	Client push.HTTPDoer
}

// NewMetricsCollectorAdapter creates a metrics collector with its own registry
func NewMetricsCollectorAdapter(config MetricsCollectorConfig) *PrometheusMetricsCollector {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetricsCollector{
		registry: registry,
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snow_alert_runs_total",
				Help: "The total number of scheduled runs by outcome",
			},
			[]string{"outcome"},
		),
		snowDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snow_alert_snow_detected_total",
			Help: "The total number of runs whose forecast predicted snow",
		}),
		forecastDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "snow_alert_forecast_days",
			Help: "Number of forecast days evaluated by the last run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "snow_alert_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		logger: config.Logger,
	}

	registry.MustRegister(m.runs, m.snowDetected, m.forecastDays, m.lastRun)

	for _, outcome := range []ports.RunOutcome{
		ports.RunOutcomeSent,
		ports.RunOutcomeFetchFailed,
		ports.RunOutcomeComposeFailed,
		ports.RunOutcomeSendFailed,
	} {
		m.runs.WithLabelValues(string(outcome))
	}

	if config.PushgatewayURL != "" {
		pusher := push.New(config.PushgatewayURL, config.JobName).Gatherer(registry)
		if config.Client != nil {
			pusher = pusher.Client(config.Client)
		}
		m.pusher = pusher
	}

	return m
}

// RecordRun updates run metrics and pushes them when a Pushgateway is configured
func (m *PrometheusMetricsCollector) RecordRun(ctx context.Context, result ports.RunResult) {
	m.runs.WithLabelValues(string(result.Outcome)).Inc()
	if result.Snow {
		m.snowDetected.Inc()
	}
	if result.ForecastDays > 0 {
		m.forecastDays.Set(float64(result.ForecastDays))
	}

	finishedAt := result.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}
	m.lastRun.Set(float64(finishedAt.Unix()))

	if m.pusher == nil {
		return
	}

	if err := m.pusher.PushContext(ctx); err != nil && m.logger != nil {
		m.logger.Warn("Failed to push run metrics", ports.F("error", err))
	}
}

// Registry exposes the underlying registry
func (m *PrometheusMetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}
