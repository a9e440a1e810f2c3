// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the land registry core.
type Metrics struct {
	// Ledger events emitted, by component and operation
	LedgerEvents *prometheus.CounterVec

	// Operation failures, by component and error code
	OperationErrors *prometheus.CounterVec

	// Escrow value movements in minor units
	EscrowVolume *prometheus.CounterVec
}

// New creates a Metrics instance with all registry metrics registered
// on the default registerer.
func New() *Metrics {
	return &Metrics{
		LedgerEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "landledger_events_total",
			Help: "Total ledger events emitted by component and operation",
		}, []string{"component", "operation"}),

		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "landledger_operation_errors_total",
			Help: "Total failed operations by component and error code",
		}, []string{"component", "code"}),

		EscrowVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "landledger_escrow_volume_minor_units",
			Help: "Escrow value moved, by direction (credit, withdrawal)",
		}, []string{"direction"}),
	}
}

// IncrementEvent records one emitted ledger event.
func (m *Metrics) IncrementEvent(component, operation string) {
	if m != nil {
		m.LedgerEvents.WithLabelValues(component, operation).Inc()
	}
}

// IncrementError records one failed operation.
func (m *Metrics) IncrementError(component, code string) {
	if m != nil {
		m.OperationErrors.WithLabelValues(component, code).Inc()
	}
}

// AddEscrowVolume records moved escrow value.
func (m *Metrics) AddEscrowVolume(direction string, amount int64) {
	if m != nil && amount > 0 {
		m.EscrowVolume.WithLabelValues(direction).Add(float64(amount))
	}
}
