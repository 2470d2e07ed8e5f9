package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	Network struct {
		// Timeout acota el fetch del JWKS y el lookup del principal.
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"network"`

	Auth struct {
		JWKSURI        string `yaml:"jwks_uri"`
		PrincipalField string `yaml:"principal_field"`
		SubjectClaim   string `yaml:"subject_claim"`
		Verification   struct {
			Algorithms     []string      `yaml:"algorithms"`
			Audience       string        `yaml:"audience"`
			Issuer         string        `yaml:"issuer"`
			ClockTolerance time.Duration `yaml:"clock_tolerance"`
			RequireExpiry  bool          `yaml:"require_expiry"`
			CheckIssuedAt  bool          `yaml:"check_issued_at"`
		} `yaml:"verification"`
	} `yaml:"auth"`

	Keys struct {
		Driver string `yaml:"driver"` // memory | redis | postgres
		// TTL 0 = las keys cacheadas no expiran.
		TTL   time.Duration `yaml:"ttl"`
		Redis struct {
			Addr     string `yaml:"addr"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"keys"`

	Principals struct {
		Driver   string `yaml:"driver"` // memory | postgres
		Table    string `yaml:"table"`
		SeedFile string `yaml:"seed_file"`
	} `yaml:"principals"`

	Storage struct {
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int32         `yaml:"max_conns"`
			MinConns        int32         `yaml:"min_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`
}

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Load lee el YAML en path. path vacío = solo defaults + env.
func Load(path string) (*Config, error) {
	var b []byte
	if path != "" {
		var err error
		b, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}
	// Normalizar seed_file (si relativa) respecto al directorio del YAML
	if p := strings.TrimSpace(c.Principals.SeedFile); p != "" && path != "" && !filepath.IsAbs(p) {
		c.Principals.SeedFile = filepath.Clean(filepath.Join(filepath.Dir(path), p))
	}
	return c, nil
}

// Parse decodifica b, aplica defaults, overrides por env y valida.
func Parse(b []byte) (*Config, error) {
	var c Config
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	c.applyDefaults()
	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Network.Timeout == 0 {
		c.Network.Timeout = 5 * time.Second
	}
	if c.Auth.PrincipalField == "" {
		c.Auth.PrincipalField = "subject"
	}
	if c.Auth.SubjectClaim == "" {
		c.Auth.SubjectClaim = "sub"
	}
	if len(c.Auth.Verification.Algorithms) == 0 {
		c.Auth.Verification.Algorithms = []string{"RS256"}
	}
	if c.Keys.Driver == "" {
		c.Keys.Driver = DriverMemory
	}
	if c.Keys.Redis.Prefix == "" {
		c.Keys.Redis.Prefix = "jwksguard"
	}
	if c.Principals.Driver == "" {
		c.Principals.Driver = DriverMemory
	}
	if c.Principals.Table == "" {
		c.Principals.Table = "principals"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool, error) {
	if s, ok := getEnvStr(key); ok {
		i, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, false, fmt.Errorf("config: %s: %w", key, err)
		}
		return i, true, nil
	}
	return 0, false, nil
}

func getEnvBool(key string) (bool, bool, error) {
	if s, ok := getEnvStr(key); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return false, false, fmt.Errorf("config: %s: %w", key, err)
		}
		return b, true, nil
	}
	return false, false, nil
}

func getEnvDur(key string) (time.Duration, bool, error) {
	if s, ok := getEnvStr(key); ok {
		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return 0, false, fmt.Errorf("config: %s: %w", key, err)
		}
		return d, true, nil
	}
	return 0, false, nil
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa el YAML con variables de entorno. Los nombres sin
// prefijo (JWKS_URI, LOG_LEVEL, APP_ENV) se aceptan como alias.
func (c *Config) applyEnvOverrides() error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := getEnvStr(k); ok {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}
	var errs []error
	dur := func(dst *time.Duration, key string) {
		if v, ok, err := getEnvDur(key); err != nil {
			errs = append(errs, err)
		} else if ok {
			*dst = v
		}
	}

	// APP / SERVER / LOG
	str(&c.App.Env, "JWKSGUARD_APP_ENV", "APP_ENV")
	c.App.Env = strings.ToLower(c.App.Env)
	str(&c.Server.Addr, "JWKSGUARD_SERVER_ADDR", "SERVER_ADDR")
	str(&c.Log.Level, "JWKSGUARD_LOG_LEVEL", "LOG_LEVEL")
	dur(&c.Network.Timeout, "JWKSGUARD_NETWORK_TIMEOUT")

	// AUTH
	str(&c.Auth.JWKSURI, "JWKSGUARD_AUTH_JWKS_URI", "JWKS_URI")
	str(&c.Auth.PrincipalField, "JWKSGUARD_AUTH_PRINCIPAL_FIELD")
	str(&c.Auth.SubjectClaim, "JWKSGUARD_AUTH_SUBJECT_CLAIM")
	if v, ok := getEnvCSV("JWKSGUARD_AUTH_ALGORITHMS"); ok && len(v) > 0 {
		c.Auth.Verification.Algorithms = v
	}
	str(&c.Auth.Verification.Audience, "JWKSGUARD_AUTH_AUDIENCE")
	str(&c.Auth.Verification.Issuer, "JWKSGUARD_AUTH_ISSUER")
	dur(&c.Auth.Verification.ClockTolerance, "JWKSGUARD_AUTH_CLOCK_TOLERANCE")
	if v, ok, err := getEnvBool("JWKSGUARD_AUTH_REQUIRE_EXPIRY"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Auth.Verification.RequireExpiry = v
	}
	if v, ok, err := getEnvBool("JWKSGUARD_AUTH_CHECK_ISSUED_AT"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Auth.Verification.CheckIssuedAt = v
	}

	// KEYS
	str(&c.Keys.Driver, "JWKSGUARD_KEYS_DRIVER")
	dur(&c.Keys.TTL, "JWKSGUARD_KEYS_TTL")
	str(&c.Keys.Redis.Addr, "JWKSGUARD_REDIS_ADDR", "REDIS_ADDR")
	str(&c.Keys.Redis.Password, "JWKSGUARD_REDIS_PASSWORD", "REDIS_PASSWORD")
	str(&c.Keys.Redis.Prefix, "JWKSGUARD_REDIS_PREFIX")
	if v, ok, err := getEnvInt("JWKSGUARD_REDIS_DB"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Keys.Redis.DB = v
	}

	// PRINCIPALS / STORAGE
	str(&c.Principals.Driver, "JWKSGUARD_PRINCIPALS_DRIVER")
	str(&c.Principals.Table, "JWKSGUARD_PRINCIPALS_TABLE")
	str(&c.Principals.SeedFile, "JWKSGUARD_PRINCIPALS_SEED_FILE")
	str(&c.Storage.DSN, "JWKSGUARD_STORAGE_DSN", "STORAGE_DSN")

	return errors.Join(errs...)
}

// Validate chequea los valores críticos.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Auth.JWKSURI) == "" {
		errs = append(errs, errors.New("config: auth.jwks_uri is required"))
	} else if u, err := url.Parse(c.Auth.JWKSURI); err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		errs = append(errs, fmt.Errorf("config: auth.jwks_uri %q is not an http(s) URL", c.Auth.JWKSURI))
	} else if u.Scheme == "http" && c.App.Env == "prod" {
		errs = append(errs, errors.New("config: auth.jwks_uri must use https in prod"))
	}

	if c.Network.Timeout < 0 {
		errs = append(errs, errors.New("config: network.timeout must be >= 0"))
	}
	if c.Auth.Verification.ClockTolerance < 0 {
		errs = append(errs, errors.New("config: auth.verification.clock_tolerance must be >= 0"))
	}
	if c.Keys.TTL < 0 {
		errs = append(errs, errors.New("config: keys.ttl must be >= 0"))
	}
	for _, a := range c.Auth.Verification.Algorithms {
		if strings.HasPrefix(strings.ToUpper(a), "HS") || strings.EqualFold(a, "none") {
			errs = append(errs, fmt.Errorf("config: algorithm %q cannot be verified with a JWKS key", a))
		}
	}

	switch c.Keys.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Keys.Redis.Addr == "" {
			errs = append(errs, errors.New("config: keys.redis.addr is required for the redis driver"))
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("config: storage.dsn is required for the postgres key store"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown keys.driver %q", c.Keys.Driver))
	}

	switch c.Principals.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("config: storage.dsn is required for the postgres principal directory"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown principals.driver %q", c.Principals.Driver))
	}

	return errors.Join(errs...)
}

// NeedsPostgres indica si algún driver usa storage.dsn.
func (c *Config) NeedsPostgres() bool {
	return c.Keys.Driver == DriverPostgres || c.Principals.Driver == DriverPostgres
}
