package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	LedgerOps           *prometheus.CounterVec   // ledger_operations_total{op,outcome}
	Compensations       *prometheus.CounterVec   // saga_compensations_total{reason,outcome}
	CacheLookups        *prometheus.CounterVec   // cache_lookups_total{result}
	OrderCreateDuration *prometheus.HistogramVec // order_create_duration_seconds{outcome}

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry, namespace string) *Metrics {
	m := &Metrics{
		LedgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ledger_operations_total",
			Help: "Ledger reserve/release/get calls by outcome.",
		}, []string{"op", "outcome"}),
		Compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "saga_compensations_total",
			Help: "Stock releases issued to undo a failed order creation.",
		}, []string{"reason", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_lookups_total",
			Help: "Read-through cache lookups by result.",
		}, []string{"result"}),
		OrderCreateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "order_create_duration_seconds",
			Help:    "CreateOrder latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		gatherer: reg,
	}
	reg.MustRegister(m.LedgerOps, m.Compensations, m.CacheLookups, m.OrderCreateDuration)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
