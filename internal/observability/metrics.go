// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cycle metrics
	RoundsPlanned   prometheus.Counter
	RoundsIdle      prometheus.Counter
	PlansSubmitted  prometheus.Counter
	PlanFailures    *prometheus.CounterVec
	StaleSelections prometheus.Counter
	CurrentRound    prometheus.Gauge

	// Selection metrics
	BoxesScanned  prometheus.Gauge
	BoxesConsumed prometheus.Counter
	TokensPlanned *prometheus.CounterVec
	ChangeOutputs prometheus.Counter

	// Node metrics
	NodeCallLatency *prometheus.HistogramVec
	BlockHeight     prometheus.Gauge

	// Health metrics
	LastSuccessfulRound prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_dispenser"
	}

	return &Metrics{
		// Cycle metrics
		RoundsPlanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "rounds_planned_total",
			Help:      "Total number of rounds that produced a distribution plan",
		}),
		RoundsIdle: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "rounds_idle_total",
			Help:      "Total number of rounds with nothing to distribute",
		}),
		PlansSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "plans_submitted_total",
			Help:      "Total number of plans submitted to the node",
		}),
		PlanFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "plan_failures_total",
			Help:      "Total number of failed rounds by reason",
		}, []string{"reason"}),
		StaleSelections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "stale_selections_total",
			Help:      "Total number of plans dropped because a selected box was spent",
		}),
		CurrentRound: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "current_round",
			Help:      "Current distribution round",
		}),

		// Selection metrics
		BoxesScanned: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "boxes_scanned",
			Help:      "Number of unspent boxes seen in the latest pool scan",
		}),
		BoxesConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "boxes_consumed_total",
			Help:      "Total number of boxes consumed as plan inputs",
		}),
		TokensPlanned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "tokens_planned_total",
			Help:      "Total token amount planned for distribution by token",
		}, []string{"token_id"}),
		ChangeOutputs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "change_outputs_total",
			Help:      "Total number of plans that produced a change output",
		}),

		// Node metrics
		NodeCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "call_latency_seconds",
			Help:      "Node REST call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		BlockHeight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "block_height",
			Help:      "Latest block height seen from the node",
		}),

		// Health metrics
		LastSuccessfulRound: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_round_timestamp",
			Help:      "Unix timestamp of the last successfully completed round",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordNodeLatency records node REST call latency.
func RecordNodeLatency(method string, seconds float64) {
	DefaultMetrics.NodeCallLatency.WithLabelValues(method).Observe(seconds)
}
