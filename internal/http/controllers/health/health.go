// Package health expone /healthz (liveness) y /readyz (dependencias).
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dropDatabas3/jwksguard/internal/http/errors"
	"github.com/dropDatabas3/jwksguard/internal/observability/logger"
)

// Pinger es cualquier dependencia que se puede chequear.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapta una función a Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// ComponentStatus representa el estado de un componente específico.
type ComponentStatus struct {
	Status  string `json:"status"` // "ok" | "error"
	Message string `json:"message,omitempty"`
}

// Response es el cuerpo de /readyz.
type Response struct {
	Status     string                     `json:"status"` // "ready" | "unavailable"
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version,omitempty"`
	Timestamp  time.Time                  `json:"timestamp"`
	Error      *errors.AppError           `json:"error,omitempty"` // solo con "unavailable"
}

// Controller chequea las dependencias registradas.
type Controller struct {
	checks  map[string]Pinger
	version string
	timeout time.Duration
}

// NewController crea el controller. timeout acota cada Ping.
func NewController(version string, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Controller{checks: map[string]Pinger{}, version: version, timeout: timeout}
}

// Register agrega un chequeo con nombre. No es seguro llamarlo con el server corriendo.
func (c *Controller) Register(name string, p Pinger) {
	if p != nil {
		c.checks[name] = p
	}
}

// Healthz siempre responde 200 mientras el proceso atiende.
func (c *Controller) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// Readyz pinguea cada dependencia; 503 si alguna falla.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Status:     "ready",
		Components: make(map[string]ComponentStatus, len(c.checks)),
		Version:    c.version,
		Timestamp:  time.Now().UTC(),
	}

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed []string
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		err := c.checks[name].Ping(ctx)
		cancel()
		if err != nil {
			logger.From(r.Context()).Warn("readiness check failed", logger.Component(name), logger.Err(err))
			failed = append(failed, name)
			resp.Components[name] = ComponentStatus{Status: "error", Message: err.Error()}
			continue
		}
		resp.Components[name] = ComponentStatus{Status: "ok"}
	}

	status := http.StatusOK
	if len(failed) > 0 {
		resp.Status = "unavailable"
		resp.Error = errors.ErrServiceUnavailable.WithDetail(strings.Join(failed, ", "))
		status = resp.Error.HTTPStatus
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
