// Package app arma el grafo de dependencias del guard a partir de la config.
// Todo se construye una vez al arrancar y se comparte entre requests.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/jwksguard/internal/authz"
	"github.com/dropDatabas3/jwksguard/internal/cache"
	"github.com/dropDatabas3/jwksguard/internal/config"
	"github.com/dropDatabas3/jwksguard/internal/jwks"
	"github.com/dropDatabas3/jwksguard/internal/keys"
	"github.com/dropDatabas3/jwksguard/internal/observability/logger"
	"github.com/dropDatabas3/jwksguard/internal/principal"
	"github.com/dropDatabas3/jwksguard/internal/token"
)

// Container contiene las dependencias construidas.
type Container struct {
	Config     *config.Config
	Pool       *pgxpool.Pool // nil si ningún driver usa postgres
	Cache      cache.Client  // nil con keys.driver=postgres
	JWKS       *jwks.Client
	KeyStore   keys.Store
	Keys       *keys.Cache
	Directory  principal.Directory
	Verifier   *token.Verifier
	Authorizer *authz.Authorizer

	// Checks son los pings de readiness por componente ("keys", y
	// "principals" con el directorio Postgres).
	Checks map[string]func(context.Context) error

	closers []func()
}

// Build construye el Container. Ante error libera lo ya abierto.
func Build(ctx context.Context, cfg *config.Config) (_ *Container, err error) {
	c := &Container{Config: cfg, Checks: map[string]func(context.Context) error{}}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()
	log := logger.Named("app")

	if cfg.NeedsPostgres() {
		if c.Pool, err = openPool(ctx, cfg); err != nil {
			return nil, err
		}
		c.closers = append(c.closers, c.Pool.Close)
	}

	switch cfg.Keys.Driver {
	case config.DriverPostgres:
		st := keys.NewPGStore(c.Pool, cfg.Keys.TTL)
		if err = st.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		c.Checks["keys"] = st.Ping
		c.KeyStore = st
	default:
		c.Cache, err = cache.New(ctx, cache.Config{
			Driver:   cfg.Keys.Driver,
			Addr:     cfg.Keys.Redis.Addr,
			Password: cfg.Keys.Redis.Password,
			DB:       cfg.Keys.Redis.DB,
			Prefix:   cfg.Keys.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		cc := c.Cache
		c.closers = append(c.closers, func() { _ = cc.Close() })
		st := keys.NewCacheStore(cc, cfg.Keys.TTL)
		c.Checks["keys"] = st.Ping
		c.KeyStore = st
	}

	switch cfg.Principals.Driver {
	case config.DriverPostgres:
		dir, derr := principal.NewPGDirectory(c.Pool, cfg.Principals.Table)
		if derr != nil {
			return nil, derr
		}
		c.Checks["principals"] = dir.Ping
		c.Directory = dir
	default:
		dir := principal.NewMemoryDirectory()
		if cfg.Principals.SeedFile != "" {
			n, serr := dir.LoadSeed(cfg.Principals.SeedFile)
			if serr != nil {
				return nil, serr
			}
			log.Info("principals seeded", logger.Count(n), logger.String("file", cfg.Principals.SeedFile))
		}
		c.Directory = dir
	}

	c.JWKS = jwks.NewClient(cfg.Auth.JWKSURI, jwks.WithTimeout(cfg.Network.Timeout))
	c.Keys = keys.New(c.KeyStore, c.JWKS)

	v := cfg.Auth.Verification
	c.Verifier = token.NewVerifier(token.Options{
		Algorithms:     v.Algorithms,
		Audience:       v.Audience,
		Issuer:         v.Issuer,
		ClockTolerance: v.ClockTolerance,
		RequireExpiry:  v.RequireExpiry,
		CheckIssuedAt:  v.CheckIssuedAt,
	})

	c.Authorizer, err = authz.New(authz.Config{
		SubjectClaim:   cfg.Auth.SubjectClaim,
		PrincipalField: cfg.Auth.PrincipalField,
		Timeout:        cfg.Network.Timeout,
	}, authz.Deps{
		Directory: c.Directory,
		Keys:      c.Keys,
		Verifier:  c.Verifier,
	})
	if err != nil {
		return nil, err
	}

	log.Info("guard wired",
		logger.URI(c.JWKS.URI()),
		logger.String("keys_driver", cfg.Keys.Driver),
		logger.String("principals_driver", cfg.Principals.Driver),
		logger.Any("algorithms", c.Verifier.Algorithms()),
	)
	return c, nil
}

// Close libera conexiones en orden inverso de apertura.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	pg := cfg.Storage.Postgres
	if pg.MaxConns > 0 {
		poolCfg.MaxConns = pg.MaxConns
	} else {
		poolCfg.MaxConns = 10
	}
	if pg.MinConns > 0 {
		poolCfg.MinConns = pg.MinConns
	}
	if pg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = pg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Network.Timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return pool, nil
}
