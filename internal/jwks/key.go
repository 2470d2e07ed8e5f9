// Package jwks contiene el modelo JWK/JWKS consumido por el guard, el cliente
// HTTP que descarga el key set remoto y el conversor x5c -> PEM.
package jwks

// Key representa una signing key publicada en un JWKS (RFC 7517).
// Solo X5c se usa para verificar; el resto se conserva para diagnóstico y
// para que el registro persistido sea idéntico al publicado.
type Key struct {
	KID string   `json:"kid"`
	Kty string   `json:"kty,omitempty"`
	Use string   `json:"use,omitempty"`
	Alg string   `json:"alg,omitempty"`
	N   string   `json:"n,omitempty"`
	E   string   `json:"e,omitempty"`
	Crv string   `json:"crv,omitempty"`
	X   string   `json:"x,omitempty"`
	Y   string   `json:"y,omitempty"`
	X5c []string `json:"x5c,omitempty"`
	X5t string   `json:"x5t,omitempty"`
}

// KeySet representa el documento JWKS completo.
type KeySet struct {
	Keys []Key `json:"keys"`
}

// Find devuelve la primera key cuyo kid coincide.
func (s *KeySet) Find(kid string) (Key, bool) {
	if s == nil {
		return Key{}, false
	}
	for _, k := range s.Keys {
		if k.KID == kid {
			return k, true
		}
	}
	return Key{}, false
}

// VerificationKey es material de clave pública en PEM, derivado de Key.X5c[0].
type VerificationKey []byte

func (v VerificationKey) String() string { return string(v) }
