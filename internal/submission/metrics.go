package submission

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records submission outcomes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Terminal outcomes by state
	Outcomes *prometheus.CounterVec

	// Duration of each remote phase
	PhaseLatency *prometheus.HistogramVec

	// Compensation results by step and result
	Compensations *prometheus.CounterVec

	// Bytes of attachments stored
	UploadedBytes prometheus.Counter

	// Submissions currently holding a limiter slot
	InFlight prometheus.Gauge
}

// NewMetrics registers the submission metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cadastro_submission_outcomes_total",
			Help: "Submission attempts by terminal state",
		}, []string{"outcome"}),

		PhaseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cadastro_submission_phase_duration_seconds",
			Help:    "Duration of submission phases against the store",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"phase"}), // phase: "creating", "uploading", "patching", "rolling_back"

		Compensations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cadastro_submission_compensations_total",
			Help: "Rollback steps run by step name and result",
		}, []string{"step", "result"}),

		UploadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "cadastro_submission_uploaded_bytes_total",
			Help: "Total attachment bytes written to object storage",
		}),

		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cadastro_submission_in_flight",
			Help: "Submissions currently being processed",
		}),
	}
}

// IncrementOutcome records a terminal state.
func (m *Metrics) IncrementOutcome(state State) {
	if m != nil {
		m.Outcomes.WithLabelValues(state.String()).Inc()
	}
}

// ObservePhase records how long a phase took.
func (m *Metrics) ObservePhase(phase Phase, d time.Duration) {
	if m != nil {
		m.PhaseLatency.WithLabelValues(phase.String()).Observe(d.Seconds())
	}
}

// ObserveRollback records each compensation result.
func (m *Metrics) ObserveRollback(report RollbackReport) {
	if m == nil {
		return
	}
	for _, s := range report.Steps {
		result := "ok"
		if s.Err != nil {
			result = "failed"
		}
		m.Compensations.WithLabelValues(s.Name, result).Inc()
	}
}

// AddUploadedBytes records stored attachment bytes.
func (m *Metrics) AddUploadedBytes(n int) {
	if m != nil {
		m.UploadedBytes.Add(float64(n))
	}
}

// SetInFlight records the number of active submissions.
func (m *Metrics) SetInFlight(n int) {
	if m != nil {
		m.InFlight.Set(float64(n))
	}
}
