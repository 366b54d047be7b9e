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
	// Polling engine metrics
	CyclesTotal        prometheus.Counter
	FetchErrors        prometheus.Counter
	ActivitiesFetched  prometheus.Counter
	TransactionsStored prometheus.Counter
	DuplicatesSkipped  prometheus.Counter
	ItemErrors         *prometheus.CounterVec

	// Artwork metrics
	ArtifactsProduced prometheus.Counter
	ArtifactFailures  prometheus.Counter

	// Metadata metrics
	MetadataUpdates *prometheus.CounterVec

	// Webhook metrics
	WebhookEvents *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dynamic_nft_generator"
	}

	return &Metrics{
		CyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "cycles_total",
			Help:      "Total number of polling cycles started",
		}),
		FetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "fetch_errors_total",
			Help:      "Total number of activity fetch failures",
		}),
		ActivitiesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "activities_fetched_total",
			Help:      "Total number of activities returned by the feed",
		}),
		TransactionsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "transactions_stored_total",
			Help:      "Total number of new sale transactions stored",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of duplicate signatures treated as already processed",
		}),
		ItemErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "item_errors_total",
			Help:      "Total number of per-item processing errors by stage",
		}, []string{"stage"}),

		ArtifactsProduced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artwork",
			Name:      "artifacts_produced_total",
			Help:      "Total number of artworks generated and stored",
		}),
		ArtifactFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artwork",
			Name:      "artifact_failures_total",
			Help:      "Total number of failed artwork generation attempts",
		}),

		MetadataUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "updates_total",
			Help:      "Total number of on-chain metadata updates by status",
		}, []string{"status"}),

		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Total number of webhook events received by outcome",
		}, []string{"outcome"}),

		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_cycle_timestamp",
			Help:      "Unix timestamp of the last completed polling cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCycle increments the polling cycle counter.
func RecordCycle() {
	DefaultMetrics.CyclesTotal.Inc()
}

// RecordFetchError increments the fetch error counter.
func RecordFetchError() {
	DefaultMetrics.FetchErrors.Inc()
}

// RecordActivitiesFetched adds to the fetched activities counter.
func RecordActivitiesFetched(n int) {
	DefaultMetrics.ActivitiesFetched.Add(float64(n))
}

// RecordTransactionStored increments the stored transactions counter.
func RecordTransactionStored() {
	DefaultMetrics.TransactionsStored.Inc()
}

// RecordTransactionDuplicate increments the duplicates counter.
func RecordTransactionDuplicate() {
	DefaultMetrics.DuplicatesSkipped.Inc()
}

// RecordItemError records a per-item processing error for a pipeline stage.
func RecordItemError(stage string) {
	DefaultMetrics.ItemErrors.WithLabelValues(stage).Inc()
}

// RecordArtifactProduced increments the produced artifacts counter.
func RecordArtifactProduced() {
	DefaultMetrics.ArtifactsProduced.Inc()
}

// RecordArtifactFailure increments the failed artifacts counter.
func RecordArtifactFailure() {
	DefaultMetrics.ArtifactFailures.Inc()
}

// RecordMetadataUpdate records a metadata update outcome ("success"/"failure").
func RecordMetadataUpdate(status string) {
	DefaultMetrics.MetadataUpdates.WithLabelValues(status).Inc()
}

// RecordCycleCompleted stamps the completion time of a polling cycle.
func RecordCycleCompleted() {
	DefaultMetrics.LastSuccessfulCycle.SetToCurrentTime()
}

// RecordWebhookEvent records a webhook outcome
// ("handled", "ignored", "invalid", "error").
func RecordWebhookEvent(outcome string) {
	DefaultMetrics.WebhookEvents.WithLabelValues(outcome).Inc()
}
