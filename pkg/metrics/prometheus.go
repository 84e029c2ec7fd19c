package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	domrepo "github.com/gurubamal/iimcat-sub002/internal/domain/repository"
)

var _ domrepo.Metrics = (*Recorder)(nil)

// Recorder implements the engine's Metrics port on Prometheus.
type Recorder struct {
	decisions *prometheus.CounterVec
	vetoes    *prometheus.CounterVec
	boosts    prometheus.Histogram
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rebound_decisions_total",
			Help: "Decisions by market regime and outcome",
		}, []string{"regime", "outcome"}),
		vetoes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rebound_vetoes_total",
			Help: "Boosts withheld, by reason",
		}, []string{"reason"}),
		boosts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rebound_boost_points",
			Help:    "Distribution of applied boosts",
			Buckets: []float64{0, 3, 5, 10, 15, 20, 25},
		}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rebound_errors_total",
			Help: "Errors by kind",
		}, []string{"kind"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rebound_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordDecision(regime models.Regime, outcome string) {
	r.decisions.WithLabelValues(string(regime), outcome).Inc()
}

func (r *Recorder) RecordVeto(reason string) { r.vetoes.WithLabelValues(reason).Inc() }

func (r *Recorder) RecordBoost(points float64) { r.boosts.Observe(points) }

func (r *Recorder) RecordError(kind string) { r.errors.WithLabelValues(kind).Inc() }

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

var _ domrepo.Metrics = Nop{}

func (Nop) RecordDecision(models.Regime, string) {}
func (Nop) RecordVeto(string)                    {}
func (Nop) RecordBoost(float64)                  {}
func (Nop) RecordError(string)                   {}
func (Nop) RecordLatency(string, float64)        {}
