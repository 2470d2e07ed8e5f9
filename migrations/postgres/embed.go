// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contiene todas las migraciones Postgres, en orden lexicográfico.
//
//go:embed *.sql
var FS embed.FS

// JWKSKeys es el schema del key store Postgres; keys.PGStore lo aplica al
// arrancar.
//
//go:embed 0001_jwks_keys.sql
var JWKSKeys string

// Principals es el schema de referencia del directorio con la tabla por
// defecto. El directorio no lo aplica: la tabla la gestiona el dueño de los
// datos.
//
//go:embed 0002_principals.sql
var Principals string
