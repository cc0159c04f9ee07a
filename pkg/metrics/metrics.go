// Package metrics exposes Prometheus gauges and counters for the mempool,
// docket sealing, and proposal validation, registered against their own
// registry so a single process can host more than one validator instance in
// tests without collector name collisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors this service reports.
type Metrics struct {
	registry *prometheus.Registry

	MempoolSize            prometheus.Gauge
	DocketsSealed          prometheus.Counter
	TransactionsSealed     prometheus.Counter
	ProposalsValidated     *prometheus.CounterVec
	ChainAuditErrors       prometheus.Counter
	RegistrationsFinalized prometheus.Counter
}

// New creates a fresh Metrics instance and registers all of its collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		MempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sorcha",
			Subsystem: "mempool",
			Name:      "size",
			Help:      "Number of transactions currently held in the mempool across all registers.",
		}),
		DocketsSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sorcha",
			Subsystem: "validator",
			Name:      "dockets_sealed_total",
			Help:      "Total number of dockets sealed.",
		}),
		TransactionsSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sorcha",
			Subsystem: "validator",
			Name:      "transactions_sealed_total",
			Help:      "Total number of transactions sealed into a docket.",
		}),
		ProposalsValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sorcha",
			Subsystem: "governance",
			Name:      "proposals_validated_total",
			Help:      "Governance proposals validated, labeled by outcome.",
		}, []string{"outcome"}),
		ChainAuditErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sorcha",
			Subsystem: "chainaudit",
			Name:      "errors_total",
			Help:      "Total number of chain audit runs that reported at least one error.",
		}),
		RegistrationsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sorcha",
			Subsystem: "registration",
			Name:      "finalized_total",
			Help:      "Total number of registers successfully finalized.",
		}),
	}

	reg.MustRegister(
		m.MempoolSize,
		m.DocketsSealed,
		m.TransactionsSealed,
		m.ProposalsValidated,
		m.ChainAuditErrors,
		m.RegistrationsFinalized,
	)
	return m
}

// Handler returns the http.Handler serving this instance's metrics in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDocketSealed satisfies pkg/validator.SealObserver.
func (m *Metrics) ObserveDocketSealed(transactionCount int) {
	m.DocketsSealed.Inc()
	m.TransactionsSealed.Add(float64(transactionCount))
}

// ObserveRegistrationFinalized satisfies pkg/registration's optional
// finalize-observer hook.
func (m *Metrics) ObserveRegistrationFinalized() {
	m.RegistrationsFinalized.Inc()
}

// ObserveProposalValidated increments the proposals-validated counter for
// the given outcome label. pkg/governance has no observer hook, and no
// package in this module calls it.
func (m *Metrics) ObserveProposalValidated(outcome string) {
	m.ProposalsValidated.WithLabelValues(outcome).Inc()
}
