package keys

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/jwksguard/internal/cache"
	"github.com/dropDatabas3/jwksguard/internal/jwks"
)

const cacheKeyPrefix = "jwk:"

// CacheStore guarda registros JWK como JSON en un cache.Client (memory o redis).
type CacheStore struct {
	c   cache.Client
	ttl time.Duration
}

// NewCacheStore crea el store. ttl 0 = las entradas no expiran.
func NewCacheStore(c cache.Client, ttl time.Duration) *CacheStore {
	return &CacheStore{c: c, ttl: ttl}
}

func (s *CacheStore) Find(ctx context.Context, kid string) ([]jwks.Key, error) {
	raw, err := s.c.Get(ctx, cacheKeyPrefix+kid)
	if cache.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var k jwks.Key
	if err := json.Unmarshal([]byte(raw), &k); err != nil {
		return nil, fmt.Errorf("keys: stored record for kid %q: %w", kid, err)
	}
	return []jwks.Key{k}, nil
}

func (s *CacheStore) Create(ctx context.Context, k jwks.Key) (jwks.Key, error) {
	b, err := json.Marshal(k)
	if err != nil {
		return jwks.Key{}, err
	}
	if err := s.c.Set(ctx, cacheKeyPrefix+k.KID, string(b), s.ttl); err != nil {
		return jwks.Key{}, err
	}
	return k, nil
}

// Ping verifica el backend (readiness).
func (s *CacheStore) Ping(ctx context.Context) error { return s.c.Ping(ctx) }
