package logger

import "go.uber.org/zap"

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// ─── Guard ───

// KeyID es el kid del header del token.
func KeyID(v string) zap.Field { return zap.String("kid", v) }

// Subject es el claim de sujeto del token (no verificado hasta Verify).
func Subject(v string) zap.Field { return zap.String("subject", v) }

// PrincipalID es el ID del principal en el directorio.
func PrincipalID(v string) zap.Field { return zap.String("principal_id", v) }

// Kind es el tipo de rechazo (missing_credential, signature_invalid, ...).
func Kind(v string) zap.Field { return zap.String("kind", v) }

// Source indica de dónde salió la key (store|remote).
func Source(v string) zap.Field { return zap.String("key_source", v) }

// FastPath marca decisiones tomadas por el token ya registrado.
func FastPath(v bool) zap.Field { return zap.Bool("fast_path", v) }

// URI es un endpoint remoto (JWKS).
func URI(v string) zap.Field { return zap.String("uri", v) }

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Err(err error) zap.Field { return zap.Error(err) }
func Count(v int) zap.Field { return zap.Int("count", v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
func String(key, v string) zap.Field { return zap.String(key, v) }
