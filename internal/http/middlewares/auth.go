package middlewares

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/jwksguard/internal/authz"
	"github.com/dropDatabas3/jwksguard/internal/http/errors"
)

// Authorizer es lo que RequireAuth necesita del guard. *authz.Authorizer lo
// implementa.
type Authorizer interface {
	Authorize(ctx context.Context, req authz.Request) (*authz.Decision, error)
}

// RequireAuth corre el guard antes del handler. Si rechaza, responde con el
// error mapeado (401, o 500 para invalid_usage); si autoriza, deja la
// decisión en el contexto (authz.DecisionFrom).
func RequireAuth(a Authorizer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := a.Authorize(r.Context(), authz.Request{Point: authz.PointBefore, Header: r.Header})
			if err != nil {
				errors.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(authz.WithDecision(r.Context(), d)))
		})
	}
}
