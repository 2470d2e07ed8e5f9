package principal

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// validIdentifier limita tabla y columnas a identificadores SQL simples.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DefaultTable es la tabla usada si no se configura otra.
const DefaultTable = "principals"

// PGDirectory lee principals de una tabla Postgres con columnas id, subject
// y current_token; Find acepta cualquier otra columna como campo de búsqueda.
type PGDirectory struct {
	pool  *pgxpool.Pool
	table string
}

// NewPGDirectory valida el nombre de tabla y crea el directorio.
func NewPGDirectory(pool *pgxpool.Pool, table string) (*PGDirectory, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validIdentifier.MatchString(table) {
		return nil, fmt.Errorf("principal: invalid table name %q", table)
	}
	return &PGDirectory{pool: pool, table: table}, nil
}

func (d *PGDirectory) Find(ctx context.Context, q Query) ([]Principal, error) {
	sql, err := d.findSQL(q)
	if err != nil {
		return nil, err
	}
	rows, err := d.pool.Query(ctx, sql, q.Value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Principal
	for rows.Next() {
		var (
			p   Principal
			tok *string
		)
		if err := rows.Scan(&p.ID, &p.Subject, &tok); err != nil {
			return nil, err
		}
		if tok != nil {
			p.CurrentToken = *tok
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *PGDirectory) Patch(ctx context.Context, id string, p Patch) (Principal, error) {
	sql := fmt.Sprintf(
		`UPDATE %s SET current_token = $2 WHERE id = $1 RETURNING id, subject, current_token`,
		pgx.Identifier{d.table}.Sanitize(),
	)
	var (
		out Principal
		tok *string
	)
	err := d.pool.QueryRow(ctx, sql, id, nullIfEmpty(p.CurrentToken)).Scan(&out.ID, &out.Subject, &tok)
	if errors.Is(err, pgx.ErrNoRows) {
		return Principal{}, ErrNotFound
	}
	if err != nil {
		return Principal{}, err
	}
	if tok != nil {
		out.CurrentToken = *tok
	}
	return out, nil
}

// Ping verifica la conexión y que la tabla exista (readiness).
func (d *PGDirectory) Ping(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, d.pingSQL())
	return err
}

func (d *PGDirectory) pingSQL() string {
	return fmt.Sprintf(`SELECT 1 FROM %s LIMIT 0`, pgx.Identifier{d.table}.Sanitize())
}

func (d *PGDirectory) findSQL(q Query) (string, error) {
	if !validIdentifier.MatchString(q.Field) {
		return "", ErrInvalidField
	}
	if q.Limit < 0 {
		return "", ErrInvalidLimit
	}
	sql := fmt.Sprintf(
		`SELECT id, subject, current_token FROM %s WHERE %s = $1 ORDER BY id`,
		pgx.Identifier{d.table}.Sanitize(),
		pgx.Identifier{q.Field}.Sanitize(),
	)
	if q.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return sql, nil
}

// nullIfEmpty returns nil if the string is empty, otherwise returns the string pointer.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
