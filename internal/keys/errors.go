package keys

import "fmt"

// Kind clasifica por qué no se pudo resolver una verification key.
type Kind string

const (
	KindKeyRetrieval Kind = "key_retrieval" // el JWKS remoto no se pudo descargar
	KindKeyNotFound  Kind = "key_not_found" // el JWKS no publica el kid pedido
	KindKeyFormat    Kind = "key_format"    // el registro no tiene un x5c usable
)

// Error describes a failed key resolution. Err holds the underlying cause
// (transport error, conversion error) and is never shown to API clients.
type Error struct {
	Kind Kind
	KID  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("keys: %s (kid=%q): %v", e.Kind, e.KID, e.Err)
	}
	return fmt.Sprintf("keys: %s (kid=%q)", e.Kind, e.KID)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels para errors.Is.
var (
	ErrKeyRetrieval = &Error{Kind: KindKeyRetrieval}
	ErrKeyNotFound  = &Error{Kind: KindKeyNotFound}
	ErrKeyFormat    = &Error{Kind: KindKeyFormat}
)
