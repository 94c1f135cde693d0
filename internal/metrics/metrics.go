// Package metrics holds the Prometheus collectors for alert passes and the
// HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "foodwatch"

// Pass outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeDisabled  = "disabled"
	OutcomeDenied    = "denied"
	OutcomeError     = "error"
)

// Metrics owns its own registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	alertPasses       *prometheus.CounterVec
	migrations        prometheus.Counter
	migrationFailures prometheus.Counter
	expiredProducts   prometheus.Gauge
	soonProducts      prometheus.Gauge

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		alertPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_passes_total",
			Help:      "Alert passes by outcome.",
		}, []string{"outcome"}),
		migrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_migrations_total",
			Help:      "Expired products moved to the shopping list.",
		}),
		migrationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_migration_failures_total",
			Help:      "Expired products whose move to the shopping list failed.",
		}),
		expiredProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "expired_products",
			Help:      "Expired products seen by the last completed alert pass.",
		}),
		soonProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "expiring_soon_products",
			Help:      "Products expiring soon as seen by the last completed alert pass.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.alertPasses,
		m.migrations,
		m.migrationFailures,
		m.expiredProducts,
		m.soonProducts,
		m.requests,
		m.requestDuration,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) PassFinished(outcome string) {
	m.alertPasses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PassCounts(expired, soon int) {
	m.expiredProducts.Set(float64(expired))
	m.soonProducts.Set(float64(soon))
}

func (m *Metrics) Migrated() {
	m.migrations.Inc()
}

func (m *Metrics) MigrationFailed() {
	m.migrationFailures.Inc()
}

// ObserveRequest records one served request. path should be the route
// pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(method, path, code).Inc()
	m.requestDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}
