// Package metrics holds collectors for outbound collaborator calls.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

var (
	once sync.Once

	CollaboratorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rebound",
			Subsystem: "collaborator",
			Name:      "latency_seconds",
			Help:      "Latency of collaborator calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CollaboratorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rebound",
			Subsystem: "collaborator",
			Name:      "errors_total",
			Help:      "Errors by collaborator endpoint",
		},
		[]string{"endpoint"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rebound",
			Subsystem: "collaborator",
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"breaker"},
	)
)

// Register adds the collectors to reg once per process.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		reg.MustRegister(CollaboratorLatency, CollaboratorErrors, BreakerState)
	})
}

// ObserveBreaker is a gobreaker OnStateChange callback.
func ObserveBreaker(name string, _ gobreaker.State, to gobreaker.State) {
	BreakerState.WithLabelValues(name).Set(float64(to))
}
