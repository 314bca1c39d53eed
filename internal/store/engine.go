package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mzidar/numizmat/internal/db"
)

// DBTX is the subset of *sql.DB and *sql.Tx the engine needs. Every engine
// operation runs against whichever the caller supplies, so multi-step
// workflows can keep all reads and writes inside one transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RowScanner abstracts sql.Row and sql.Rows for table scan functions.
type RowScanner interface {
	Scan(dest ...any) error
}

// Table describes one entity table to the engine: its name, the columns a
// full row consists of, and how to scan one row into the entity type.
type Table[T any] struct {
	Name    string
	Columns []string
	Scan    func(RowScanner) (T, error)
}

func (t Table[T]) selectClause() string {
	return "SELECT " + strings.Join(t.Columns, ", ") + " FROM " + t.Name
}

// buildQuery seeds the query with the soft-delete predicate and applies the
// caller's filtrations in order.
func buildQuery(fs []Filtration) *Query {
	q := &Query{}
	q.Where("deleted_at IS NULL")
	for _, f := range fs {
		f(q)
	}
	return q
}

// Get returns the entity with the given id, or ErrNotFound when no row
// matches. A row hidden by a filtration is indistinguishable from an absent
// one.
func Get[T any](ctx context.Context, dbtx DBTX, t Table[T], id int64, fs ...Filtration) (T, error) {
	var zero T
	q := buildQuery(fs)
	q.Where("id = ?", id)

	row := dbtx.QueryRowContext(ctx,
		t.selectClause()+" WHERE "+q.whereClause(), q.args...)
	entity, err := t.Scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("getting %s: %w", t.Name, err)
	}
	return entity, nil
}

// List returns all matching entities ordered by id ascending unless the
// filtrations request a different ordering.
func List[T any](ctx context.Context, dbtx DBTX, t Table[T], fs ...Filtration) ([]T, error) {
	q := buildQuery(fs)

	rows, err := dbtx.QueryContext(ctx,
		t.selectClause()+" WHERE "+q.whereClause()+" ORDER BY "+q.orderClause(),
		q.args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", t.Name, err)
	}
	defer rows.Close()

	var entities []T
	for rows.Next() {
		entity, err := t.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.Name, err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// Insert adds a new row with the given columns and returns the persisted
// entity. Unique-constraint failures surface as ErrUnique.
func Insert[T any](ctx context.Context, dbtx DBTX, t Table[T], columns []string, values ...any) (T, error) {
	var zero T
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	result, err := dbtx.ExecContext(ctx,
		"INSERT INTO "+t.Name+" ("+strings.Join(columns, ", ")+") VALUES ("+placeholders+")",
		values...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return zero, ErrUnique
		}
		return zero, fmt.Errorf("inserting %s: %w", t.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return zero, fmt.Errorf("getting %s id: %w", t.Name, err)
	}
	return Get(ctx, dbtx, t, id)
}

// Update overwrites the given columns on one row and returns the updated
// entity, or ErrNotFound when the row is absent or filtered out.
func Update[T any](ctx context.Context, dbtx DBTX, t Table[T], id int64, columns []string, values []any, fs ...Filtration) (T, error) {
	var zero T
	q := buildQuery(fs)
	q.Where("id = ?", id)

	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = ?"
	}
	args := append(append([]any{}, values...), q.args...)

	result, err := dbtx.ExecContext(ctx,
		"UPDATE "+t.Name+" SET "+strings.Join(sets, ", ")+" WHERE "+q.whereClause(),
		args...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return zero, ErrUnique
		}
		return zero, fmt.Errorf("updating %s: %w", t.Name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return zero, fmt.Errorf("updating %s: %w", t.Name, err)
	}
	if affected == 0 {
		return zero, ErrNotFound
	}
	return Get(ctx, dbtx, t, id)
}

// SoftDelete stamps deleted_at on one row. Once deleted, the row falls out
// of the soft-delete predicate, so repeated calls return ErrNotFound.
func SoftDelete[T any](ctx context.Context, dbtx DBTX, t Table[T], id int64, fs ...Filtration) error {
	q := buildQuery(fs)
	q.Where("id = ?", id)

	result, err := dbtx.ExecContext(ctx,
		"UPDATE "+t.Name+" SET deleted_at = CURRENT_TIMESTAMP WHERE "+q.whereClause(),
		q.args...)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", t.Name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", t.Name, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
