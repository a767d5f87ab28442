// Package store contains data access for all TaskBoard entities. Every
// table shares the same audit column shape (created_at, updated_at,
// deleted_at), which lets a single generic CRUD repository serve the
// common operations; per-entity stores layer their own queries on top.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Querier is satisfied by *sql.DB and *sql.Tx so generic operations can
// run standalone or inside a transaction.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RowScanner is the common surface of *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// Values is a column→value set used for inserts and partial updates.
// Writable columns are declared per entity in its Mapping; anything
// outside the declaration is rejected with a ColumnError.
type Values map[string]any

// Mapping declares, per entity, everything the generic repository needs:
// the table, the ordered select column list, a row scanner, and the
// explicit allow-lists of insertable and patchable columns.
type Mapping[T any] struct {
	Table      string
	Columns    []string
	Scan       func(RowScanner) (T, error)
	Insertable []string
	Patchable  []string
}

// CRUD is the generic repository over an auditable entity T.
type CRUD[T any] struct {
	db         Querier
	table      string
	selectList string
	scan       func(RowScanner) (T, error)
	columns    map[string]bool
	insertable map[string]bool
	patchable  map[string]bool
}

// NewCRUD builds the generic repository for a mapping. An incomplete
// mapping is a startup configuration error, so it panics rather than
// limping along to a broken query at request time.
func NewCRUD[T any](db Querier, m Mapping[T]) *CRUD[T] {
	if m.Table == "" || len(m.Columns) == 0 || m.Scan == nil {
		panic(fmt.Sprintf("store: incomplete mapping for table %q", m.Table))
	}
	columns := make(map[string]bool, len(m.Columns))
	for _, col := range m.Columns {
		columns[col] = true
	}
	for _, required := range []string{"id", "created_at", "updated_at", "deleted_at"} {
		if !columns[required] {
			panic(fmt.Sprintf("store: mapping for table %q is missing audit column %q", m.Table, required))
		}
	}
	return &CRUD[T]{
		db:         db,
		table:      m.Table,
		selectList: strings.Join(m.Columns, ", "),
		scan:       m.Scan,
		columns:    columns,
		insertable: toSet(m.Insertable),
		patchable:  toSet(m.Patchable),
	}
}

// Table returns the mapped table name.
func (c *CRUD[T]) Table() string {
	return c.table
}

// WithTx returns a copy of the repository bound to the given transaction.
func (c *CRUD[T]) WithTx(tx *sql.Tx) *CRUD[T] {
	clone := *c
	clone.db = tx
	return &clone
}

// FindByID fetches a live (not soft-deleted) row by id.
func (c *CRUD[T]) FindByID(ctx context.Context, id int) (T, bool, error) {
	return c.FindOne(ctx, Values{"id": id})
}

// FindByIDAny fetches a row by id regardless of its soft-delete state.
// It exists for restore and for admin paths that must see the tombstone.
func (c *CRUD[T]) FindByIDAny(ctx context.Context, id int) (T, bool, error) {
	var zero T
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", c.selectList, c.table)
	entity, err := c.scan(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return entity, true, nil
}

// FindOne fetches a single live row matching all the given conditions.
func (c *CRUD[T]) FindOne(ctx context.Context, where Values) (T, bool, error) {
	var zero T
	clause, args := c.whereClause(where, false, 1)
	query := fmt.Sprintf("SELECT %s FROM %s%s", c.selectList, c.table, clause)
	entity, err := c.scan(c.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return entity, true, nil
}

// FindAll lists rows honoring the filter, sort and window in opts.
// Soft-deleted rows are excluded unless opts.IncludeDeleted is set.
func (c *CRUD[T]) FindAll(ctx context.Context, opts ListOptions) ([]T, error) {
	query, args := c.buildSelect(opts)
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		entity, err := c.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count counts rows matching the filter in opts, ignoring its window.
func (c *CRUD[T]) Count(ctx context.Context, opts ListOptions) (int, error) {
	clause, args := c.whereClause(opts.Where, opts.IncludeDeleted, 1)
	query := fmt.Sprintf("SELECT COUNT(1) FROM %s%s", c.table, clause)
	var total int
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Create inserts a row from the given values and returns the fully
// materialized entity, including DB-generated id and timestamps.
func (c *CRUD[T]) Create(ctx context.Context, values Values) (T, error) {
	var zero T
	cols := make([]string, 0, len(values))
	for col := range values {
		if !c.insertable[col] {
			return zero, &ColumnError{Table: c.table, Column: col, Op: "insertable"}
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[col]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		c.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	var id int
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return zero, err
	}

	created, found, err := c.FindByIDAny(ctx, id)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, fmt.Errorf("store: inserted row %d vanished from %s", id, c.table)
	}
	return created, nil
}

// Update applies a partial patch to a live row and re-fetches it. The
// found flag is false when no live row matched, which the service layer
// turns into a not-found failure.
func (c *CRUD[T]) Update(ctx context.Context, id int, patch Values) (T, bool, error) {
	var zero T
	if len(patch) == 0 {
		return c.FindByID(ctx, id)
	}

	cols := make([]string, 0, len(patch))
	for col := range patch {
		if !c.patchable[col] {
			return zero, false, &ColumnError{Table: c.table, Column: col, Op: "patchable"}
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	assignments := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, patch[col])
	}
	assignments = append(assignments, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d AND deleted_at IS NULL",
		c.table, strings.Join(assignments, ", "), len(args),
	)
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return zero, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return zero, false, err
	}
	if affected == 0 {
		return zero, false, nil
	}
	return c.FindByID(ctx, id)
}

// SoftDelete stamps deleted_at on a live row. Already-deleted and absent
// rows both report false.
func (c *CRUD[T]) SoftDelete(ctx context.Context, id int) (bool, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL",
		c.table,
	)
	return c.execAffected(ctx, query, id)
}

// Restore clears deleted_at on a soft-deleted row.
func (c *CRUD[T]) Restore(ctx context.Context, id int) (bool, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET deleted_at = NULL, updated_at = now() WHERE id = $1 AND deleted_at IS NOT NULL",
		c.table,
	)
	return c.execAffected(ctx, query, id)
}

// Delete removes a row irreversibly, regardless of soft-delete state.
func (c *CRUD[T]) Delete(ctx context.Context, id int) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", c.table)
	return c.execAffected(ctx, query, id)
}

func (c *CRUD[T]) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func toSet(cols []string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, col := range cols {
		set[col] = true
	}
	return set
}
