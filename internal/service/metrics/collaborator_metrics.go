package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	CollaboratorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trademood",
			Subsystem: "collaborator",
			Name:      "latency_seconds",
			Help:      "Latency of external collaborator calls (feeds, scoring)",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"collaborator"},
	)

	CollaboratorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trademood",
			Subsystem: "collaborator",
			Name:      "errors_total",
			Help:      "Errors by external collaborator",
		},
		[]string{"collaborator"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(CollaboratorLatency, CollaboratorErrors)
	})
}
