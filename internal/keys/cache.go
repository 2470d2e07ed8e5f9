// Package keys resuelve verification keys por kid: primero un store local,
// y ante un miss (o un registro inservible) el JWKS remoto.
package keys

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/jwksguard/internal/jwks"
	"github.com/dropDatabas3/jwksguard/internal/metrics"
)

// Fetcher descarga el key set remoto completo. *jwks.Client lo implementa.
type Fetcher interface {
	Fetch(ctx context.Context) (*jwks.KeySet, error)
}

// Converter produce la verification key de un registro.
type Converter interface {
	Convert(k jwks.Key) (jwks.VerificationKey, error)
}

// Store persiste registros por kid. Create sobrescribe si ya existe.
type Store interface {
	Find(ctx context.Context, kid string) ([]jwks.Key, error)
	Create(ctx context.Context, k jwks.Key) (jwks.Key, error)
}

// Source indica de dónde salió la key resuelta.
type Source string

const (
	SourceStore  Source = "store"
	SourceRemote Source = "remote"
)

// Resolution is the outcome of a successful Resolve. StoreErr and PersistErr
// carry best-effort failures (unreadable local entry, failed write-back);
// they never turn a resolved key into an error.
type Resolution struct {
	Key        jwks.VerificationKey
	Source     Source
	StoreErr   error
	PersistErr error
}

const fetchGroupKey = "jwks"

// Cache resuelve kid -> VerificationKey. Seguro para uso concurrente.
type Cache struct {
	store   Store
	fetcher Fetcher
	conv    Converter
	sf      singleflight.Group
}

// Option configura un Cache.
type Option func(*Cache)

// WithConverter reemplaza el conversor x5c -> PEM.
func WithConverter(c Converter) Option {
	return func(k *Cache) {
		if c != nil {
			k.conv = c
		}
	}
}

// New crea el cache. El fetcher se construye una vez y se comparte.
func New(store Store, fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{store: store, fetcher: fetcher, conv: jwks.PEMConverter{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

var errMiss = errors.New("keys: not in store")

// Resolve returns the verification key for kid.
//
// Local store problems are not fatal and fall through to the remote key set.
// A failed fetch yields KindKeyRetrieval, an absent kid KindKeyNotFound and a
// record without usable x5c KindKeyFormat.
func (c *Cache) Resolve(ctx context.Context, kid string) (Resolution, error) {
	var res Resolution

	key, err := c.fromStore(ctx, kid)
	if err == nil {
		metrics.ObserveKeyLookup(string(SourceStore))
		res.Key, res.Source = key, SourceStore
		return res, nil
	}
	if !errors.Is(err, errMiss) {
		res.StoreErr = err
	}

	set, err := c.fetch(ctx)
	if err != nil {
		metrics.ObserveKeyLookup("failed")
		return res, &Error{Kind: KindKeyRetrieval, KID: kid, Err: err}
	}

	rec, ok := set.Find(kid)
	if !ok {
		metrics.ObserveKeyLookup("failed")
		return res, &Error{Kind: KindKeyNotFound, KID: kid}
	}

	key, err = c.conv.Convert(rec)
	if err != nil {
		metrics.ObserveKeyLookup("failed")
		return res, &Error{Kind: KindKeyFormat, KID: kid, Err: err}
	}

	if _, err := c.store.Create(ctx, rec); err != nil {
		res.PersistErr = err
	}

	metrics.ObserveKeyLookup(string(SourceRemote))
	res.Key, res.Source = key, SourceRemote
	return res, nil
}

func (c *Cache) fromStore(ctx context.Context, kid string) (jwks.VerificationKey, error) {
	recs, err := c.store.Find(ctx, kid)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errMiss
	}
	return c.conv.Convert(recs[0])
}

// fetch colapsa descargas concurrentes en una sola. La descarga compartida no
// hereda la cancelación del primer caller (el timeout del http.Client la
// acota); cada caller deja de esperar cuando su propio ctx termina.
func (c *Cache) fetch(ctx context.Context) (*jwks.KeySet, error) {
	ch := c.sf.DoChan(fetchGroupKey, func() (any, error) {
		return c.fetcher.Fetch(context.WithoutCancel(ctx))
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		set, _ := r.Val.(*jwks.KeySet)
		return set, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
