package authz

import (
	"errors"
	"fmt"
)

// Kind distingue el motivo de un rechazo. Todos significan "no autorizado".
type Kind string

const (
	KindInvalidUsage      Kind = "invalid_usage"
	KindMissingCredential Kind = "missing_credential"
	KindMalformedToken    Kind = "malformed_token"
	KindUnknownPrincipal  Kind = "unknown_principal"
	KindSignatureInvalid  Kind = "signature_invalid"
)

// Error es el rechazo devuelto por Authorize. Err conserva la causa interna
// para logs; la capa HTTP solo expone Kind y Message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matchea por Kind, así errors.Is(err, authz.ErrMissingCredential) funciona.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels para errors.Is.
var (
	ErrInvalidUsage      = &Error{Kind: KindInvalidUsage, Message: "authorize can only run before the handler"}
	ErrMissingCredential = &Error{Kind: KindMissingCredential, Message: "authorization header not set"}
	ErrMalformedToken    = &Error{Kind: KindMalformedToken, Message: "the token was malformed or missing"}
	ErrUnknownPrincipal  = &Error{Kind: KindUnknownPrincipal, Message: "no principal with this id exists"}
	ErrSignatureInvalid  = &Error{Kind: KindSignatureInvalid, Message: "token could not be verified"}
)

// KindOf devuelve el Kind de err, o "" si no es un *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func reject(base *Error, msg string, cause error) *Error {
	e := *base
	if msg != "" {
		e.Message = msg
	}
	e.Err = cause
	return &e
}
