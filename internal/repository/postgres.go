package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/example/game-economy/internal/entity"
	"github.com/example/game-economy/internal/repository/filter"
)

// Postgres stores each entity type in its own two-column table:
// id TEXT PRIMARY KEY plus the full document as JSONB. Filters are
// translated to WHERE clauses over the text projection of document
// fields, so every backend agrees on filter semantics.
type Postgres[E entity.Entity] struct {
	db    *sql.DB
	table string
}

// ConnectPostgres opens and pings a PostgreSQL connection.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgres creates the backing table if needed and returns a
// repository bound to it. The table name comes from service wiring,
// never from request input.
func NewPostgres[E entity.Entity](db *sql.DB, table string) (*Postgres[E], error) {
	_, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, doc JSONB NOT NULL)`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return &Postgres[E]{db: db, table: table}, nil
}

func (p *Postgres[E]) GetAll(ctx context.Context) ([]E, error) {
	return p.queryDocs(ctx, fmt.Sprintf(`SELECT doc FROM %s`, p.table))
}

func (p *Postgres[E]) Find(ctx context.Context, expr filter.Expr) ([]E, error) {
	where, args, err := translateExpr(expr, 1)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE %s`, p.table, where)
	return p.queryDocs(ctx, query, args...)
}

func (p *Postgres[E]) GetOne(ctx context.Context, id string) (E, error) {
	var zero E
	var raw []byte
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, p.table)
	err := p.db.QueryRowContext(ctx, query, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, err
	}
	return decode[E](raw)
}

func (p *Postgres[E]) FindOne(ctx context.Context, expr filter.Expr) (E, error) {
	var zero E
	where, args, err := translateExpr(expr, 1)
	if err != nil {
		return zero, err
	}
	var raw []byte
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE %s LIMIT 1`, p.table, where)
	err = p.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, err
	}
	return decode[E](raw)
}

func (p *Postgres[E]) Create(ctx context.Context, e E) error {
	if err := validate(e); err != nil {
		return err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, p.table)
	res, err := p.db.ExecContext(ctx, query, e.GetID(), raw)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func (p *Postgres[E]) Update(ctx context.Context, e E) error {
	if err := validate(e); err != nil {
		return err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	if prior, versioned := priorVersion(e); versioned {
		query := fmt.Sprintf(
			`UPDATE %s SET doc = $2 WHERE id = $1 AND (doc->>'version')::bigint = $3`, p.table)
		res, err := p.db.ExecContext(ctx, query, e.GetID(), raw, prior)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrVersionConflict
		}
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET doc = $2 WHERE id = $1`, p.table)
	_, err = p.db.ExecContext(ctx, query, e.GetID(), raw)
	return err
}

func (p *Postgres[E]) Remove(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, p.table)
	_, err := p.db.ExecContext(ctx, query, id)
	return err
}

func (p *Postgres[E]) queryDocs(ctx context.Context, query string, args ...any) ([]E, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []E
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		e, err := decode[E](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// translateExpr renders a filter expression as a WHERE fragment over the
// JSONB document. Field values are compared through their text
// projection (doc->>), matching the normalization the in-memory backend
// applies.
func translateExpr(expr filter.Expr, argIndex int) (string, []any, error) {
	switch x := expr.(type) {
	case filter.EqExpr:
		clause := fmt.Sprintf(`doc->>'%s' = $%d`, x.Field, argIndex)
		return clause, []any{textValue(x.Value)}, nil
	case filter.InExpr:
		texts := make([]string, len(x.Values))
		for i, v := range x.Values {
			texts[i] = textValue(v)
		}
		clause := fmt.Sprintf(`doc->>'%s' = ANY($%d)`, x.Field, argIndex)
		return clause, []any{pq.Array(texts)}, nil
	case filter.AndExpr:
		var clauses []string
		var args []any
		for _, sub := range x.Exprs {
			clause, subArgs, err := translateExpr(sub, argIndex)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
			args = append(args, subArgs...)
			argIndex += len(subArgs)
		}
		return strings.Join(clauses, " AND "), args, nil
	case nil:
		return "", nil, fmt.Errorf("nil filter expression")
	default:
		return "", nil, fmt.Errorf("unsupported filter expression %T", expr)
	}
}

func textValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
