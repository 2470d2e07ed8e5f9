// Package token decodifica tokens compactos sin confiar en ellos y verifica
// firma y claims contra una verification key ya resuelta.
package token

import (
	"errors"
	"fmt"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed: el token no tiene estructura JWS compacta decodificable.
	ErrMalformed = errors.New("token: malformed")
	// ErrSignatureInvalid: firma o claims inválidos. No lleva detalle de la librería.
	ErrSignatureInvalid = errors.New("token: signature or claims invalid")
)

// Header son los campos del header que usa el guard.
type Header struct {
	Alg string
	Kid string
	Typ string
}

// Decoded es el resultado de Decode. Nada acá es confiable hasta Verify.
type Decoded struct {
	Header    Header
	RawHeader map[string]any
	Claims    jwtv5.MapClaims
}

// StringClaim devuelve el claim name como string.
func (d *Decoded) StringClaim(name string) (string, bool) {
	if d == nil || d.Claims == nil {
		return "", false
	}
	s, ok := d.Claims[name].(string)
	return s, ok && s != ""
}

// Decode parses raw without verifying its signature.
func Decode(raw string) (*Decoded, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, fmt.Errorf("%w: want 3 segments", ErrMalformed)
	}

	claims := jwtv5.MapClaims{}
	tok, _, err := jwtv5.NewParser().ParseUnverified(raw, &claims)
	// alg ausente o desconocido no es un problema de estructura: lo rechaza Verify
	if err != nil && !(errors.Is(err, jwtv5.ErrTokenUnverifiable) && tok != nil) {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if tok.Header == nil {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: missing payload", ErrMalformed)
	}

	d := &Decoded{RawHeader: tok.Header, Claims: claims}
	d.Header.Alg, _ = tok.Header["alg"].(string)
	d.Header.Kid, _ = tok.Header["kid"].(string)
	d.Header.Typ, _ = tok.Header["typ"].(string)
	return d, nil
}

// Decoder adapta Decode a la estrategia que consume el authorizer.
type Decoder struct{}

func (Decoder) Decode(raw string) (*Decoded, error) { return Decode(raw) }
