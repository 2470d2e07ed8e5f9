package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Guard-related Prometheus metrics. These are defined in a standalone package to avoid
// import cycles between jwks, keys, authz and the HTTP packages.

var (
	Decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jwksguard_decisions_total",
		Help: "Decisiones de autorización por resultado y tipo de rechazo",
	}, []string{"outcome", "kind"})

	KeyLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jwksguard_key_lookups_total",
		Help: "Resoluciones de signing keys por origen (store|remote|failed)",
	}, []string{"source"})

	JWKSFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jwksguard_jwks_fetch_total",
		Help: "Descargas del JWKS remoto por resultado",
	}, []string{"result"})

	JWKSFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "jwksguard_jwks_fetch_duration_seconds",
		Help:    "Latencia de la descarga del JWKS remoto",
		Buckets: prometheus.DefBuckets,
	})
)

// Register registers the guard metrics on the given registry (or default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{Decisions, KeyLookups, JWKSFetches, JWKSFetchDuration} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveDecision cuenta una decisión. Para las autorizadas kind es
// fast_path o verified; para los rechazos, el authz.Kind.
func ObserveDecision(outcome, kind string) {
	Decisions.WithLabelValues(outcome, kind).Inc()
}

// ObserveKeyLookup cuenta una resolución de key por origen.
func ObserveKeyLookup(source string) {
	KeyLookups.WithLabelValues(source).Inc()
}

// ObserveJWKSFetch registra resultado y latencia de una descarga.
func ObserveJWKSFetch(err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	JWKSFetches.WithLabelValues(result).Inc()
	JWKSFetchDuration.Observe(d.Seconds())
}
