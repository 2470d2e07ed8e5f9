package token

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/jwksguard/internal/jwks"
	"github.com/dropDatabas3/jwksguard/internal/observability/logger"
)

// DefaultAlgorithms se usa cuando Options.Algorithms está vacío.
var DefaultAlgorithms = []string{"RS256"}

// Options controla la verificación de firma y claims.
type Options struct {
	Algorithms     []string      // allow-list de alg; los HS* se descartan siempre
	Audience       string        // si no es vacío, aud debe contenerlo
	Issuer         string        // si no es vacío, iss debe coincidir
	ClockTolerance time.Duration // leeway para exp/nbf/iat
	RequireExpiry  bool          // rechazar tokens sin exp
	CheckIssuedAt  bool          // rechazar iat en el futuro
}

// Verifier verifica tokens contra una VerificationKey. Seguro para uso concurrente.
type Verifier struct {
	parser *jwtv5.Parser
	algs   []string
}

// NewVerifier arma el parser con las opciones dadas.
func NewVerifier(opts Options) *Verifier {
	algs := allowedAlgorithms(opts.Algorithms)

	popts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods(algs),
		jwtv5.WithLeeway(opts.ClockTolerance),
	}
	if opts.CheckIssuedAt {
		popts = append(popts, jwtv5.WithIssuedAt())
	}
	if opts.Audience != "" {
		popts = append(popts, jwtv5.WithAudience(opts.Audience))
	}
	if opts.Issuer != "" {
		popts = append(popts, jwtv5.WithIssuer(opts.Issuer))
	}
	if opts.RequireExpiry {
		popts = append(popts, jwtv5.WithExpirationRequired())
	}
	return &Verifier{parser: jwtv5.NewParser(popts...), algs: algs}
}

// Algorithms devuelve la allow-list efectiva.
func (v *Verifier) Algorithms() []string { return append([]string(nil), v.algs...) }

// Verify checks the signature of raw with key and validates exp, nbf and the
// configured iat/audience/issuer checks. Any failure is ErrSignatureInvalid; the
// underlying reason is only logged at debug level.
func (v *Verifier) Verify(ctx context.Context, raw string, key jwks.VerificationKey) error {
	pub, err := ParsePublicKey(key)
	if err != nil {
		logger.From(ctx).Debug("verification key unusable", logger.Op("token.verify"), logger.Err(err))
		return ErrSignatureInvalid
	}

	tok, err := v.parser.Parse(raw, func(*jwtv5.Token) (any, error) { return pub, nil })
	if err != nil || !tok.Valid {
		logger.From(ctx).Debug("token rejected", logger.Op("token.verify"), logger.Err(err))
		return ErrSignatureInvalid
	}
	return nil
}

// ParsePublicKey extracts the public key from PEM material holding either a
// certificate or a PKIX / PKCS#1 public key.
func ParsePublicKey(key jwks.VerificationKey) (crypto.PublicKey, error) {
	block, _ := pem.Decode(key)
	if block == nil {
		return nil, errors.New("token: verification key is not PEM")
	}
	switch block.Type {
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("token: parse certificate: %w", err)
		}
		return cert.PublicKey, nil
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("token: unsupported PEM block %q", block.Type)
	}
}

func allowedAlgorithms(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a == "" || strings.HasPrefix(strings.ToUpper(a), "HS") || strings.EqualFold(a, "none") {
			continue
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultAlgorithms...)
	}
	return out
}
