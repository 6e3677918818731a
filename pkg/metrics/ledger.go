package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stock_ledger"

// Resultados de una operación del ledger.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected" // regla de negocio
	ResultError    = "error"    // almacenamiento
)

// LedgerMetrics métricas de las operaciones del ledger.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	waiting    prometheus.Gauge
}

// NewLedgerMetrics registra las métricas del ledger en reg. Con reg nil devuelve un colector inerte.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Operaciones del ledger por tipo y resultado.",
	}, []string{"op", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duración de las operaciones del ledger, incluida la espera por el turno de escritura.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"op"})
	waiting := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "writers_waiting",
		Help:      "Escritores esperando el turno de escritura.",
	})
	reg.MustRegister(operations, duration, waiting)
	return &LedgerMetrics{operations: operations, duration: duration, waiting: waiting}
}

// Observe registra una operación terminada.
func (m *LedgerMetrics) Observe(op, result string, d time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(d.Seconds())
}

// WriterWaiting ajusta el número de escritores en espera (+1 al entrar, -1 al salir).
func (m *LedgerMetrics) WriterWaiting(delta float64) {
	if m == nil || m.waiting == nil {
		return
	}
	m.waiting.Add(delta)
}
