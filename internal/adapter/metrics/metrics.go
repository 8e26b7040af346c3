// Package metrics exposes Prometheus instruments for the ledger.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one. It implements ports.SettlementMetrics.
type Metrics struct {
	registry *prometheus.Registry

	settlements   *prometheus.CounterVec
	settleLatency *prometheus.HistogramVec
	intake        *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

// New registers all instruments plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_ledger_settlements_total",
			Help: "Settlement attempts by mode and result",
		}, []string{"mode", "result"}),
		settleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_ledger_settlement_duration_seconds",
			Help:    "Settlement latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"mode"}),
		intake: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_ledger_intake_total",
			Help: "Transactions recorded by type",
		}, []string{"type"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_ledger_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_ledger_http_request_duration_seconds",
			Help:    "Request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "route"}),
	}
}

// ObserveSettlement records one settlement attempt.
func (m *Metrics) ObserveSettlement(mode domain.SettlementMode, result string, elapsed time.Duration) {
	m.settlements.WithLabelValues(mode.String(), result).Inc()
	m.settleLatency.WithLabelValues(mode.String()).Observe(elapsed.Seconds())
}

// ObserveIntake counts a newly recorded transaction.
func (m *Metrics) ObserveIntake(txType domain.TransactionType) {
	m.intake.WithLabelValues(string(txType)).Inc()
}

// ObserveHTTP records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
