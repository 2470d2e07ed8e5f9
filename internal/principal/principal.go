// Package principal define el directorio de principals que consulta el guard
// y sus adapters (memoria y Postgres).
package principal

import (
	"context"
	"errors"
)

// Principal es una entidad conocida por el directorio.
// CurrentToken vacío significa que no hay token registrado.
type Principal struct {
	ID           string `json:"id" yaml:"id"`
	Subject      string `json:"subject" yaml:"subject"`
	CurrentToken string `json:"current_token,omitempty" yaml:"current_token,omitempty"`
}

// Query filtra principals por igualdad de un campo.
type Query struct {
	Field string
	Value string
	Limit int
}

// Patch actualiza campos puntuales de un principal.
type Patch struct {
	CurrentToken string
}

// Directory es la interfaz que consume el authorizer.
type Directory interface {
	Find(ctx context.Context, q Query) ([]Principal, error)
	Patch(ctx context.Context, id string, p Patch) (Principal, error)
}

var (
	ErrNotFound     = errors.New("principal: not found")
	ErrInvalidField = errors.New("principal: invalid query field")
	ErrInvalidLimit = errors.New("principal: invalid limit")
)

// Field names entendidos por los adapters.
const (
	FieldID      = "id"
	FieldSubject = "subject"
)
