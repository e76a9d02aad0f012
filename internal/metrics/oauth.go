package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del flujo OAuth. Viven en un paquete propio para que transport,
// oauth y http las compartan sin ciclos de import.

var (
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_provider_requests_total",
		Help: "Requests salientes hacia providers por host, método y clase de status",
	}, []string{"host", "method", "status"}) // status: 2xx|3xx|4xx|5xx|error

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oauth_provider_request_duration_seconds",
		Help:    "Latencia de requests hacia providers",
		Buckets: prometheus.DefBuckets,
	}, []string{"host", "method"})

	Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_operations_total",
		Help: "Operaciones del manager por provider y resultado",
	}, []string{"op", "provider", "result"}) // result: ok|error code

	StateVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_state_verifications_total",
		Help: "Verificaciones de state por resultado",
	}, []string{"result"}) // result: ok|mismatch|missing|error
)

// Register registra las métricas en el registry dado (o el default si es nil).
// Es idempotente: AlreadyRegisteredError se ignora.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{ProviderRequests, ProviderRequestDuration, Operations, StateVerifications} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// StatusClass agrupa un status HTTP en su clase ("2xx", "4xx", ...).
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "error"
	}
}
