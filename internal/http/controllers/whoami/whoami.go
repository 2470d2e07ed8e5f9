// Package whoami devuelve el principal autorizado por el guard.
package whoami

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/jwksguard/internal/authz"
	"github.com/dropDatabas3/jwksguard/internal/http/errors"
)

// Response es el cuerpo de GET /v1/whoami. Nunca incluye el token.
type Response struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	FastPath  bool   `json:"fast_path"`
	KeySource string `json:"key_source,omitempty"`
}

// Handler requiere que RequireAuth haya corrido antes.
func Handler(w http.ResponseWriter, r *http.Request) {
	d := authz.DecisionFrom(r.Context())
	if d == nil {
		errors.WriteError(w, errors.ErrUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(Response{
		ID:        d.Principal.ID,
		Subject:   d.Principal.Subject,
		FastPath:  d.FastPath,
		KeySource: string(d.KeySource),
	})
}
