package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tandem",
		Name:      "backend_requests_total",
		Help:      "Requests sent to the backend-as-a-service, by operation and outcome.",
	}, []string{"op", "outcome"})

	CacheFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tandem",
		Name:      "ride_cache_fallbacks_total",
		Help:      "Ride listings served from device storage after a backend failure.",
	})
)

func ObserveBackend(op string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	BackendRequests.WithLabelValues(op, outcome).Inc()
}
