// Package metrics defines the Prometheus counters of the student service:
// students created, students soft-deleted, and every service call by
// operation and outcome. The outcome is "success", "error" for a storage
// fault, or the failure kind (not_found, conflict, ...).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values besides the result kinds.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the Prometheus metrics for the student service
type Metrics struct {
	StudentsCreated prometheus.Counter
	StudentsRemoved prometheus.Counter
	Operations      *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StudentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "students_created_total",
			Help: "Total number of students created",
		}),
		StudentsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "students_removed_total",
			Help: "Total number of students soft-deleted",
		}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "students_operations_total",
			Help: "Student service operations by operation and outcome",
		}, []string{"operation", "outcome"}),
	}
}

// ObserveOperation counts one call of operation ending in outcome.
// A nil receiver is a no-op so callers need not check for metrics.
func (m *Metrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// IncrementStudentsCreated increments the students created counter by 1
func (m *Metrics) IncrementStudentsCreated() {
	if m == nil {
		return
	}
	m.StudentsCreated.Inc()
}

// IncrementStudentsRemoved increments the students removed counter by 1
func (m *Metrics) IncrementStudentsRemoved() {
	if m == nil {
		return
	}
	m.StudentsRemoved.Inc()
}
