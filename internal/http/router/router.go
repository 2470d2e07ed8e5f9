// Package router arma el handler HTTP del guard con chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httpmetrics "github.com/dropDatabas3/jwksguard/internal/http"
	"github.com/dropDatabas3/jwksguard/internal/http/controllers/health"
	"github.com/dropDatabas3/jwksguard/internal/http/controllers/whoami"
	"github.com/dropDatabas3/jwksguard/internal/http/errors"
	mw "github.com/dropDatabas3/jwksguard/internal/http/middlewares"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Authorizer mw.Authorizer
	Health     *health.Controller
	// Metrics es el handler de /metrics; nil = sin endpoint.
	Metrics http.Handler
}

// New registra las rutas:
//
//	GET /healthz     liveness (sin logging)
//	GET /readyz      dependencias
//	GET /metrics     prometheus
//	GET /v1/whoami   protegido por el guard
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.Each(mw.WithRecover(), mw.WithRequestID())...)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrNotFound)
	})

	if deps.Health != nil {
		r.Get("/healthz", deps.Health.Healthz)
	}

	r.Group(func(r chi.Router) {
		r.Use(mw.Each(mw.WithLogging())...)
		r.Use(httpmetrics.WithMetrics)

		if deps.Health != nil {
			r.Get("/readyz", deps.Health.Readyz)
		}
		if deps.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", deps.Metrics)
		}

		if deps.Authorizer != nil {
			r.Route("/v1", func(r chi.Router) {
				r.Use(mw.Each(mw.RequireAuth(deps.Authorizer))...)
				r.Get("/whoami", whoami.Handler)
			})
		}
	})

	return r
}
