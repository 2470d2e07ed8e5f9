package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dropDatabas3/jwksguard/internal/metrics"
)

// maxBodyBytes limita el tamaño del documento JWKS aceptado.
const maxBodyBytes = 1 << 20

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	URI        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jwks: GET %s: unexpected status %d", e.URI, e.StatusCode)
}

// DecodeError is returned when the response body is not a JWKS document.
type DecodeError struct {
	URI string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("jwks: decode %s: %v", e.URI, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Client descarga el JWKS completo de un endpoint. No cachea: cada Fetch es
// una request nueva. Es seguro para uso concurrente.
type Client struct {
	uri  string
	http *http.Client
}

// Option configura un Client.
type Option func(*Client)

// WithHTTPClient reemplaza el http.Client usado (tests, transports custom).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout fija el timeout total de cada Fetch.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			cp := *c.http
			cp.Timeout = d
			c.http = &cp
		}
	}
}

// NewClient crea el cliente. Se construye una vez al arrancar y se inyecta.
func NewClient(uri string, opts ...Option) *Client {
	c := &Client{
		uri:  uri,
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URI devuelve el endpoint configurado.
func (c *Client) URI() string { return c.uri }

// Fetch performs a GET against the endpoint and decodes the key set.
// Transport errors are returned as produced by net/http.
func (c *Client) Fetch(ctx context.Context) (*KeySet, error) {
	start := time.Now()
	set, err := c.fetch(ctx)
	metrics.ObserveJWKSFetch(err, time.Since(start))
	return set, err
}

func (c *Client) fetch(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{URI: c.uri, StatusCode: resp.StatusCode}
	}

	var set KeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&set); err != nil {
		return nil, &DecodeError{URI: c.uri, Err: err}
	}
	return &set, nil
}
