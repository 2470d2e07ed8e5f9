package authz

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/jwksguard/internal/keys"
	"github.com/dropDatabas3/jwksguard/internal/principal"
)

// Point es el punto de intercepción desde el que se invoca Authorize.
type Point int

const (
	PointBefore Point = iota + 1 // antes del handler
	PointAfter                   // después del handler (uso inválido)
)

func (p Point) String() string {
	switch p {
	case PointBefore:
		return "before"
	case PointAfter:
		return "after"
	default:
		return "unknown"
	}
}

// Request es lo que Authorize lee de la request entrante.
type Request struct {
	Point  Point
	Header http.Header
}

// Decision es el resultado de una autorización exitosa. Request es la
// request recibida, sin cambios.
type Decision struct {
	Request   Request
	Principal principal.Principal
	FastPath  bool
	KeySource keys.Source
}

type decisionKey struct{}

// WithDecision guarda la decisión en el contexto.
func WithDecision(ctx context.Context, d *Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, d)
}

// DecisionFrom obtiene la decisión del contexto (nil si no hay).
func DecisionFrom(ctx context.Context) *Decision {
	d, _ := ctx.Value(decisionKey{}).(*Decision)
	return d
}
