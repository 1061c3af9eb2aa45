package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nagarikta_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nagarikta_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nagarikta_extractions_total",
			Help: "Total number of card extractions",
		},
		[]string{"source", "status"}, // source: http, websocket
	)

	phaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nagarikta_phase_duration_seconds",
			Help:    "Duration of each extraction phase in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"phase"},
	)

	phaseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nagarikta_phase_failures_total",
			Help: "Extraction phases that failed",
		},
		[]string{"phase"},
	)

	borderStrategyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nagarikta_border_strategy_total",
			Help: "Border detection strategy that produced the canonical image",
		},
		[]string{"strategy"},
	)

	fieldsExtracted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nagarikta_fields_extracted",
			Help:    "Number of fields extracted per card",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
		},
	)

	kycChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nagarikta_kyc_checks_total",
			Help: "KYC cross-check outcomes",
		},
		[]string{"check", "result"},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nagarikta_upload_size_bytes",
			Help:    "Size of uploaded cards in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 20 * 1024 * 1024},
		},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nagarikta_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"type"},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nagarikta_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nagarikta_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"},
	)
)

// metricsObserver records phase durations.
type metricsObserver struct{}

func (metricsObserver) PhaseStarted(pipeline.Phase) {}

func (metricsObserver) PhaseFinished(p pipeline.Phase, d time.Duration, err error) {
	phaseDuration.WithLabelValues(p.String()).Observe(d.Seconds())
	if err != nil {
		phaseFailures.WithLabelValues(p.String()).Inc()
	}
}

func recordResult(source string, res *pipeline.Result) {
	status := "success"
	if !res.Success {
		status = "failed"
	}
	extractionsTotal.WithLabelValues(source, status).Inc()
	if res.WarpMetadata != nil {
		borderStrategyTotal.WithLabelValues(string(res.WarpMetadata.Strategy)).Inc()
	}
	if res.Success {
		fieldsExtracted.Observe(float64(len(res.Fields)))
	}
}
