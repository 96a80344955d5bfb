// Package metrics provides Prometheus metrics for the Fleet Simulator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the Fleet Simulator.
type Metrics struct {
	// Fleet metrics
	BoatsCreated   *prometheus.CounterVec
	BoatsClaimed   prometheus.Counter
	BoatsUnclaimed prometheus.Gauge
	BoatsCompleted *prometheus.CounterVec

	// Emission metrics
	MessagesSent   *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	RoundsComplete prometheus.Counter

	// Worker metrics
	WorkersActive     prometheus.Gauge
	SinkConnectErrors prometheus.Counter
	BatchSize         prometheus.Histogram

	// Throughput
	MessagesPerSecond prometheus.Gauge
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fleet_simulator"
	}

	m := &Metrics{
		BoatsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "boats_created_total",
				Help:      "Total number of boats created at setup",
			},
			[]string{"dataset"},
		),
		BoatsClaimed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "boats_claimed_total",
				Help:      "Total number of boats claimed by workers",
			},
		),
		BoatsUnclaimed: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "boats_unclaimed",
				Help:      "Boats left in the queue after the claim phase",
			},
		),
		BoatsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "boats_completed_total",
				Help:      "Total number of boats that emitted their full window",
			},
			[]string{"dataset"},
		),
		MessagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_sent_total",
				Help:      "Total number of telemetry records emitted",
			},
			[]string{"dataset"},
		),
		PublishErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_errors_total",
				Help:      "Total number of failed record publishes",
			},
			[]string{"backend"},
		),
		RoundsComplete: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rounds_completed_total",
				Help:      "Total number of scheduler rounds completed across workers",
			},
		),
		WorkersActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "workers_active",
				Help:      "Number of workers currently running",
			},
		),
		SinkConnectErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_connect_errors_total",
				Help:      "Workers that failed to open their sink at start",
			},
		),
		BatchSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_batch_size",
				Help:      "Number of boats claimed per worker",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 7), // 1 to 64
			},
		),
		MessagesPerSecond: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "messages_per_second",
				Help:      "Final run throughput",
			},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// IncBoatsCreated increments the boats created counter for a dataset.
func (m *Metrics) IncBoatsCreated(dataset string) {
	m.BoatsCreated.WithLabelValues(dataset).Inc()
}

// AddBoatsClaimed adds to the claimed boats counter.
func (m *Metrics) AddBoatsClaimed(count float64) {
	m.BoatsClaimed.Add(count)
}

// SetBoatsUnclaimed records the boats never claimed by any worker.
func (m *Metrics) SetBoatsUnclaimed(count float64) {
	m.BoatsUnclaimed.Set(count)
}

// IncBoatsCompleted increments the completed boats counter for a dataset.
func (m *Metrics) IncBoatsCompleted(dataset string) {
	m.BoatsCompleted.WithLabelValues(dataset).Inc()
}

// IncMessagesSent increments the emitted records counter for a dataset.
func (m *Metrics) IncMessagesSent(dataset string) {
	m.MessagesSent.WithLabelValues(dataset).Inc()
}

// IncPublishErrors increments the publish errors counter for a backend.
func (m *Metrics) IncPublishErrors(backend string) {
	m.PublishErrors.WithLabelValues(backend).Inc()
}

// IncRoundsComplete increments the completed rounds counter.
func (m *Metrics) IncRoundsComplete() {
	m.RoundsComplete.Inc()
}

// IncSinkConnectErrors increments the sink connect errors counter.
func (m *Metrics) IncSinkConnectErrors() {
	m.SinkConnectErrors.Inc()
}

// ObserveBatchSize records the size of a worker's claimed batch.
func (m *Metrics) ObserveBatchSize(size float64) {
	m.BatchSize.Observe(size)
}

// SetWorkersActive sets the number of running workers.
func (m *Metrics) SetWorkersActive(count float64) {
	m.WorkersActive.Set(count)
}

// SetMessagesPerSecond sets the final run throughput.
func (m *Metrics) SetMessagesPerSecond(rate float64) {
	m.MessagesPerSecond.Set(rate)
}
