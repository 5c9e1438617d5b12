// Package metrics exposes Prometheus instrumentation for the engagement service
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonnyWalker81/trendy/engagement/internal/models"
)

const namespace = "engagement"

// Metrics holds every collector on its own registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	eventsReceived       prometheus.Counter
	eventsAccepted       prometheus.Counter
	eventsDuplicate      prometheus.Counter
	eventsDiscarded      *prometheus.CounterVec
	snapshotsComputed    prometheus.Counter
	snapshotDuration     prometheus.Histogram
	achievementsUnlocked *prometheus.CounterVec
	catalogReloads       *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with Go runtime and process collectors registered
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	auto := promauto.With(reg)
	return &Metrics{
		registry: reg,

		eventsReceived: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of events submitted for ingestion",
		}),
		eventsAccepted: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_accepted_total",
			Help:      "Total number of events newly stored",
		}),
		eventsDuplicate: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_duplicate_total",
			Help:      "Total number of valid events already present in the log",
		}),
		eventsDiscarded: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_discarded_total",
			Help:      "Total number of events rejected during normalization",
		}, []string{"reason"}),
		snapshotsComputed: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_computed_total",
			Help:      "Total number of metric snapshots computed",
		}),
		snapshotDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent computing a metric snapshot",
			Buckets:   prometheus.DefBuckets,
		}),
		achievementsUnlocked: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_unlocked_total",
			Help:      "Total number of achievements unlocked",
		}, []string{"achievement"}),
		catalogReloads: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Achievement catalog reload attempts by result",
		}, []string{"result"}),

		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status_code"}),
		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordIngest records the outcome of one ingested batch
func (m *Metrics) RecordIngest(result models.IngestResult) {
	if m == nil {
		return
	}
	m.eventsReceived.Add(float64(result.Received))
	m.eventsAccepted.Add(float64(result.Accepted))
	m.eventsDuplicate.Add(float64(result.Duplicates))
	for reason, n := range result.Discarded.ByReason {
		m.eventsDiscarded.WithLabelValues(string(reason)).Add(float64(n))
	}
}

// RecordSnapshot records one computed snapshot and the achievements it unlocked
func (m *Metrics) RecordSnapshot(elapsed time.Duration, newlyUnlocked []string) {
	if m == nil {
		return
	}
	m.snapshotsComputed.Inc()
	m.snapshotDuration.Observe(elapsed.Seconds())
	for _, id := range newlyUnlocked {
		m.achievementsUnlocked.WithLabelValues(id).Inc()
	}
}

// RecordCatalogReload records a catalog reload attempt
func (m *Metrics) RecordCatalogReload(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.catalogReloads.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
