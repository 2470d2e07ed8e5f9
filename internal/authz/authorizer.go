// Package authz implementa el guard de autorización por request: extrae el
// bearer token, busca el principal, aplica el fast path y, si hace falta,
// resuelve la key del JWKS y verifica la firma.
package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/jwksguard/internal/jwks"
	"github.com/dropDatabas3/jwksguard/internal/keys"
	"github.com/dropDatabas3/jwksguard/internal/metrics"
	"github.com/dropDatabas3/jwksguard/internal/observability/logger"
	"github.com/dropDatabas3/jwksguard/internal/principal"
	"github.com/dropDatabas3/jwksguard/internal/token"
)

// Decoder parsea el token sin verificarlo. token.Decoder lo implementa.
type Decoder interface {
	Decode(raw string) (*token.Decoded, error)
}

// KeyResolver resuelve kid -> verification key. *keys.Cache lo implementa.
type KeyResolver interface {
	Resolve(ctx context.Context, kid string) (keys.Resolution, error)
}

// Verifier valida firma y claims temporales. *token.Verifier lo implementa.
type Verifier interface {
	Verify(ctx context.Context, raw string, key jwks.VerificationKey) error
}

const (
	DefaultSubjectClaim   = "sub"
	DefaultPrincipalField = principal.FieldSubject
)

// Config es la configuración del authorizer.
type Config struct {
	// SubjectClaim es el claim del payload que identifica al principal.
	SubjectClaim string
	// PrincipalField es el campo del directorio contra el que se compara.
	PrincipalField string
	// Timeout acota el lookup del principal y la resolución de la key.
	// 0 = sin deadline propio.
	Timeout time.Duration
}

// Deps son los colaboradores inyectados. Decoder es opcional.
type Deps struct {
	Directory principal.Directory
	Keys      KeyResolver
	Verifier  Verifier
	Decoder   Decoder
}

// Authorizer es seguro para uso concurrente.
type Authorizer struct {
	cfg  Config
	dir  principal.Directory
	keys KeyResolver
	ver  Verifier
	dec  Decoder
}

// New valida dependencias y aplica defaults.
func New(cfg Config, deps Deps) (*Authorizer, error) {
	if deps.Directory == nil {
		return nil, errors.New("authz: principal directory is required")
	}
	if deps.Keys == nil {
		return nil, errors.New("authz: key resolver is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("authz: verifier is required")
	}
	if deps.Decoder == nil {
		deps.Decoder = token.Decoder{}
	}
	if cfg.SubjectClaim == "" {
		cfg.SubjectClaim = DefaultSubjectClaim
	}
	if cfg.PrincipalField == "" {
		cfg.PrincipalField = DefaultPrincipalField
	}
	return &Authorizer{
		cfg:  cfg,
		dir:  deps.Directory,
		keys: deps.Keys,
		ver:  deps.Verifier,
		dec:  deps.Decoder,
	}, nil
}

// Authorize decide si la request puede seguir. Cualquier error devuelto es un
// *Error; su Kind indica el motivo y todos significan "no autorizado".
func (a *Authorizer) Authorize(ctx context.Context, req Request) (*Decision, error) {
	if req.Point != PointBefore {
		return nil, a.fail(ctx, reject(ErrInvalidUsage, "", nil))
	}

	raw := BearerToken(req.Header)
	if raw == "" {
		return nil, a.fail(ctx, reject(ErrMissingCredential, "", nil))
	}

	dec, err := a.dec.Decode(raw)
	if err != nil {
		return nil, a.fail(ctx, reject(ErrMalformedToken, "", err))
	}

	sub, ok := dec.StringClaim(a.cfg.SubjectClaim)
	if !ok || sub == "" {
		return nil, a.fail(ctx, reject(ErrUnknownPrincipal, "token has no subject", nil))
	}
	ctx, log := logger.With(ctx, logger.Subject(sub), logger.KeyID(dec.Header.Kid))

	p, err := a.lookup(ctx, sub)
	if err != nil {
		return nil, a.fail(ctx, reject(ErrUnknownPrincipal, "", err))
	}
	ctx, log = logger.With(ctx, logger.PrincipalID(p.ID))

	if p.CurrentToken != "" && p.CurrentToken == raw {
		metrics.ObserveDecision("authorized", "fast_path")
		log.Debug("authorized", logger.FastPath(true))
		return &Decision{Request: req, Principal: p, FastPath: true}, nil
	}

	kid := dec.Header.Kid
	if kid == "" {
		return nil, a.fail(ctx, reject(ErrUnknownPrincipal, "token has no key id", &keys.Error{Kind: keys.KindKeyNotFound}))
	}

	res, err := a.resolve(ctx, kid)
	if res.StoreErr != nil {
		log.Warn("key store entry unusable, fetched remote", logger.Err(res.StoreErr))
	}
	if err != nil {
		return nil, a.fail(ctx, reject(ErrUnknownPrincipal, "signing key could not be resolved", err))
	}
	if res.PersistErr != nil {
		log.Warn("persist signing key failed", logger.Err(res.PersistErr))
	}

	if err := a.ver.Verify(ctx, raw, res.Key); err != nil {
		return nil, a.fail(ctx, reject(ErrSignatureInvalid, "", err))
	}

	// best-effort: la autorización ya está decidida
	if _, err := a.patch(ctx, p.ID, raw); err != nil {
		log.Warn("record current token failed", logger.Err(err))
	} else {
		p.CurrentToken = raw
	}

	metrics.ObserveDecision("authorized", "verified")
	log.Debug("authorized", logger.FastPath(false), logger.Source(string(res.Source)))
	return &Decision{Request: req, Principal: p, KeySource: res.Source}, nil
}

func (a *Authorizer) lookup(ctx context.Context, sub string) (principal.Principal, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	ps, err := a.dir.Find(ctx, principal.Query{Field: a.cfg.PrincipalField, Value: sub, Limit: 1})
	if err != nil {
		return principal.Principal{}, err
	}
	if len(ps) == 0 {
		return principal.Principal{}, principal.ErrNotFound
	}
	return ps[0], nil
}

func (a *Authorizer) resolve(ctx context.Context, kid string) (keys.Resolution, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()
	return a.keys.Resolve(ctx, kid)
}

func (a *Authorizer) patch(ctx context.Context, id, raw string) (principal.Principal, error) {
	ctx, cancel := a.bounded(ctx)
	defer cancel()
	return a.dir.Patch(ctx, id, principal.Patch{CurrentToken: raw})
}

func (a *Authorizer) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return ctx, func() {}
}

func (a *Authorizer) fail(ctx context.Context, e *Error) *Error {
	metrics.ObserveDecision("rejected", string(e.Kind))
	log := logger.From(ctx)
	fields := []zap.Field{logger.Kind(string(e.Kind))}
	if e.Err != nil {
		fields = append(fields, logger.Err(e.Err))
	}
	switch e.Kind {
	case KindInvalidUsage:
		log.Error("authorize called outside the before point", fields...)
	case KindMissingCredential, KindMalformedToken:
		log.Debug("rejected", fields...)
	default:
		log.Info("rejected", fields...)
	}
	return e
}

// BearerToken extrae el token del header Authorization. Acepta el prefijo
// "Bearer " en cualquier casing; devuelve "" si no hay credencial.
func BearerToken(h http.Header) string {
	v := strings.TrimSpace(h.Get("Authorization"))
	const scheme = "bearer"
	if len(v) >= len(scheme) && strings.EqualFold(v[:len(scheme)], scheme) {
		rest := v[len(scheme):]
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
			v = rest
		}
	}
	return strings.TrimSpace(v)
}
