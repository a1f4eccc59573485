package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters for the loan domain.
type Metrics struct {
	LoansCreated     prometheus.Counter
	LoansReturned    prometheus.Counter
	LoansMarkedLate  prometheus.Counter
	PenaltiesApplied prometheus.Counter
	PolicyUpdates    prometheus.Counter
	OverdueLoans     prometheus.Gauge
}

// New creates and registers all loan metrics.
func New() *Metrics {
	return &Metrics{
		LoansCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libris_loans_created_total",
			Help: "Total number of loans created",
		}),
		LoansReturned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libris_loans_returned_total",
			Help: "Total number of loans marked as returned",
		}),
		LoansMarkedLate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libris_loans_marked_late_total",
			Help: "Total number of loans stamped late by the overdue sweep",
		}),
		PenaltiesApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libris_penalties_applied_total",
			Help: "Total number of penalties recorded against loans",
		}),
		PolicyUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libris_policy_updates_total",
			Help: "Total number of loan policy replacements",
		}),
		OverdueLoans: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "libris_overdue_loans",
			Help: "Overdue loans observed by the most recent sweep",
		}),
	}
}

func (m *Metrics) IncrementLoansCreated()     { m.LoansCreated.Inc() }
func (m *Metrics) IncrementLoansReturned()    { m.LoansReturned.Inc() }
func (m *Metrics) IncrementLoansMarkedLate()  { m.LoansMarkedLate.Inc() }
func (m *Metrics) IncrementPenaltiesApplied() { m.PenaltiesApplied.Inc() }
func (m *Metrics) IncrementPolicyUpdates()    { m.PolicyUpdates.Inc() }
func (m *Metrics) SetOverdueLoans(n int)      { m.OverdueLoans.Set(float64(n)) }
