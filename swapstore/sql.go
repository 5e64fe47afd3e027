package swapstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/arkade-labs/go-ark-swap/swap"
)

// sqlRepo is the shared query-building and execution logic behind both the
// SQLite and Postgres backends: the schema (spec 6.4) is a single table
// with a JSON payload column, identical across drivers.
type sqlRepo struct {
	db *sql.DB
	// numberedPlaceholders is true for drivers (postgres) that use
	// $1, $2, ... rather than SQLite/MySQL's positional "?".
	numberedPlaceholders bool
}

func (r *sqlRepo) placeholder(n int) string {
	if r.numberedPlaceholders {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (r *sqlRepo) Close() error { return r.db.Close() }

func (r *sqlRepo) Save(ctx context.Context, s *swap.Swap) error {
	data, err := marshalSwap(s)
	if err != nil {
		return err
	}

	var query string
	if r.numberedPlaceholders {
		query = `INSERT INTO swaps (id, kind, status, created_at, payload)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				kind = EXCLUDED.kind,
				status = EXCLUDED.status,
				created_at = EXCLUDED.created_at,
				payload = EXCLUDED.payload`
	} else {
		query = `INSERT INTO swaps (id, kind, status, created_at, payload)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				kind = excluded.kind,
				status = excluded.status,
				created_at = excluded.created_at,
				payload = excluded.payload`
	}

	_, err = r.db.ExecContext(ctx, query, s.ID, string(s.Kind), string(s.Status), s.CreatedAt, string(data))
	if err != nil {
		return fmt.Errorf("swapstore: save: %w", err)
	}
	return nil
}

func (r *sqlRepo) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM swaps WHERE id = %s", r.placeholder(1))
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("swapstore: delete: %w", err)
	}
	return nil
}

func (r *sqlRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM swaps")
	if err != nil {
		return fmt.Errorf("swapstore: clear: %w", err)
	}
	return nil
}

func (r *sqlRepo) GetAll(ctx context.Context, filter Filter) ([]*swap.Swap, error) {
	if filter.IsExplicitlyEmpty() {
		return nil, nil
	}

	var (
		clauses []string
		args    []interface{}
	)

	appendIn := func(column string, values []string) {
		if values == nil {
			return
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			placeholders[i] = r.placeholder(len(args))
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	}

	appendIn("id", filter.IDs)
	appendIn("status", statusesToStrings(filter.Statuses))
	appendIn("kind", kindsToStrings(filter.Kinds))

	query := "SELECT payload FROM swaps"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	switch filter.OrderBy {
	case OrderAsc:
		query += " ORDER BY created_at ASC"
	case OrderDesc:
		query += " ORDER BY created_at DESC"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("swapstore: get_all: %w", err)
	}
	defer rows.Close()

	var out []*swap.Swap
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("swapstore: scan: %w", err)
		}
		s, err := unmarshalSwap([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("swapstore: rows: %w", err)
	}

	return out, nil
}

func statusesToStrings(statuses []swap.Status) []string {
	if statuses == nil {
		return nil
	}
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func kindsToStrings(kinds []swap.Kind) []string {
	if kinds == nil {
		return nil
	}
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
