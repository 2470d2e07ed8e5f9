package keys

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/jwksguard/internal/jwks"
	migrations "github.com/dropDatabas3/jwksguard/migrations/postgres"
)

// PGStore persiste registros JWK en Postgres. Sobrevive reinicios y se
// comparte entre réplicas.
type PGStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPGStore crea el store. Con ttl > 0, filas más viejas que ttl se tratan como miss.
func NewPGStore(pool *pgxpool.Pool, ttl time.Duration) *PGStore {
	return &PGStore{pool: pool, ttl: ttl}
}

// EnsureSchema crea la tabla si no existe.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, migrations.JWKSKeys); err != nil {
		return fmt.Errorf("keys: pg schema: %w", err)
	}
	return nil
}

func (s *PGStore) Find(ctx context.Context, kid string) ([]jwks.Key, error) {
	rows, err := s.pool.Query(ctx, `SELECT record, fetched_at FROM jwks_keys WHERE kid = $1`, kid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []jwks.Key
	for rows.Next() {
		var (
			raw       []byte
			fetchedAt time.Time
		)
		if err := rows.Scan(&raw, &fetchedAt); err != nil {
			return nil, err
		}
		if !fresh(fetchedAt, s.ttl, time.Now()) {
			continue
		}
		var k jwks.Key
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, fmt.Errorf("keys: stored record for kid %q: %w", kid, err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, k jwks.Key) (jwks.Key, error) {
	b, err := json.Marshal(k)
	if err != nil {
		return jwks.Key{}, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO jwks_keys (kid, record, fetched_at) VALUES ($1, $2, now())
		ON CONFLICT (kid) DO UPDATE SET record = EXCLUDED.record, fetched_at = EXCLUDED.fetched_at`,
		k.KID, b)
	if err != nil {
		return jwks.Key{}, err
	}
	return k, nil
}

// Ping verifica la conexión y el schema (readiness).
func (s *PGStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `SELECT 1 FROM jwks_keys LIMIT 0`)
	return err
}

func fresh(fetchedAt time.Time, ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return true
	}
	return now.Sub(fetchedAt) < ttl
}
