package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the launchpad service.
type Metrics struct {
	// --- Settlement operations ---
	OperationsTotal   *prometheus.CounterVec // labels: op, backend, outcome
	OperationDuration *prometheus.HistogramVec
	OperationFailures *prometheus.CounterVec // labels: op, backend, reason

	// --- Sale progress ---
	UnitsSold        *prometheus.CounterVec // labels: asset
	PaymentsReceived *prometheus.CounterVec // labels: asset
	FeesCollected    prometheus.Counter
	SalesLaunched    prometheus.Counter
	SalesClosed      prometheus.Counter
	SalesSoldOut     prometheus.Counter

	// --- Detached backend ---
	StaleWitnessRejections prometheus.Counter
	InvalidProofRejections prometheus.Counter
	AccumulatorSwaps       prometheus.Counter

	// --- Emission ---
	EventsEmitted *prometheus.CounterVec // labels: event_type

	// --- Persistence / publishing ---
	PersistEventsWritten prometheus.Counter
	PersistErrors        *prometheus.CounterVec // labels: kind
	PersistBatchDuration prometheus.Histogram
	PublishDrops         prometheus.Counter
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	durationBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_operations_total",
			Help: "Settlement operations by type, backend, and outcome",
		}, []string{"op", "backend", "outcome"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "launchpad_operation_duration_seconds",
			Help:    "Settlement operation latency",
			Buckets: durationBuckets,
		}, []string{"op", "backend"}),
		OperationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_operation_failures_total",
			Help: "Settlement failures by typed reason",
		}, []string{"op", "backend", "reason"}),

		UnitsSold: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_units_sold_total",
			Help: "Sale-asset base units delivered to buyers",
		}, []string{"asset"}),
		PaymentsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_payments_received_total",
			Help: "Stable-asset base units received from buyers",
		}, []string{"asset"}),
		FeesCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_fees_collected_total",
			Help: "Platform fees skimmed, in stable-asset base units",
		}),
		SalesLaunched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_sales_launched_total",
			Help: "Sales launched",
		}),
		SalesClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_sales_closed_total",
			Help: "Sales closed by their creator",
		}),
		SalesSoldOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_sales_sold_out_total",
			Help: "Sales that reached capacity",
		}),

		StaleWitnessRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_stale_witness_rejections_total",
			Help: "Detached operations rejected on a stale freshness witness",
		}),
		InvalidProofRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_invalid_proof_rejections_total",
			Help: "Detached commits rejected by the proof authority",
		}),
		AccumulatorSwaps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_accumulator_swaps_total",
			Help: "Accumulator leaf swaps applied",
		}),

		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_events_emitted_total",
			Help: "Observability envelopes emitted",
		}, []string{"event_type"}),

		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_persist_events_written_total",
			Help: "Envelopes written to the Postgres event log",
		}),
		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpad_persist_errors_total",
			Help: "Persistence failures by kind",
		}, []string{"kind"}),
		PersistBatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "launchpad_persist_batch_duration_seconds",
			Help:    "Event-log batch flush latency",
			Buckets: prometheus.DefBuckets,
		}),
		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "launchpad_publish_drops_total",
			Help: "Outbound NATS publishes dropped or failed",
		}),
	}
}
