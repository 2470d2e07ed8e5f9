// Package jwkstest builds signing fixtures for tests: self-signed
// certificates published as x5c, a fake JWKS endpoint and token signers.
package jwkstest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/jwksguard/internal/jwks"
)

// Signer es una key privada con su registro JWKS publicado.
type Signer struct {
	KID    string
	Method jwtv5.SigningMethod
	Priv   crypto.Signer
	Key    jwks.Key
}

// NewRSA genera una key RSA 2048 y su certificado self-signed.
func NewRSA(t testing.TB, kid string) *Signer {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen rsa: %v", err)
	}
	return newSigner(t, kid, "RSA", "RS256", jwtv5.SigningMethodRS256, priv)
}

// NewEC genera una key P-256 y su certificado self-signed.
func NewEC(t testing.TB, kid string) *Signer {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("gen ec: %v", err)
	}
	return newSigner(t, kid, "EC", "ES256", jwtv5.SigningMethodES256, priv)
}

func newSigner(t testing.TB, kid, kty, alg string, m jwtv5.SigningMethod, priv crypto.Signer) *Signer {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "jwksguard-test-" + kid},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, priv.Public(), priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	return &Signer{
		KID:    kid,
		Method: m,
		Priv:   priv,
		Key: jwks.Key{
			KID: kid,
			Kty: kty,
			Alg: alg,
			Use: "sig",
			X5c: []string{base64.StdEncoding.EncodeToString(der)},
		},
	}
}

// Sign firma claims con la key del signer y pone kid en el header.
func (s *Signer) Sign(t testing.TB, claims jwtv5.MapClaims) string {
	t.Helper()
	tk := jwtv5.NewWithClaims(s.Method, claims)
	tk.Header["kid"] = s.KID
	signed, err := tk.SignedString(s.Priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

// Claims devuelve claims válidas por 5 minutos para sub.
func Claims(sub string) jwtv5.MapClaims {
	now := time.Now()
	return jwtv5.MapClaims{
		"sub": sub,
		"iat": now.Add(-10 * time.Second).Unix(),
		"nbf": now.Add(-10 * time.Second).Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	}
}

// Server es un endpoint JWKS fake que cuenta requests.
type Server struct {
	*httptest.Server

	mu     sync.RWMutex
	set    jwks.KeySet
	status int
	hits   atomic.Int64
}

// NewServer levanta el endpoint con las keys dadas. Se cierra con t.Cleanup.
func NewServer(t testing.TB, keys ...jwks.Key) *Server {
	t.Helper()
	s := &Server{set: jwks.KeySet{Keys: keys}, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.status != http.StatusOK {
			w.WriteHeader(s.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.set)
	}))
	t.Cleanup(s.Close)
	return s
}

// Hits devuelve cuántas requests recibió.
func (s *Server) Hits() int64 { return s.hits.Load() }

// SetStatus fuerza el status de respuesta (200 restaura el JWKS).
func (s *Server) SetStatus(code int) {
	s.mu.Lock()
	s.status = code
	s.mu.Unlock()
}

// SetKeys reemplaza el key set publicado.
func (s *Server) SetKeys(keys ...jwks.Key) {
	s.mu.Lock()
	s.set = jwks.KeySet{Keys: keys}
	s.mu.Unlock()
}
