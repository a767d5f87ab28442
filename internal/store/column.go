package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/taskboard/apiserver/types"
)

// ErrReorderMismatch is returned when a reorder request does not name
// exactly the set of live columns in the project.
var ErrReorderMismatch = errors.New("store: reorder ids do not match the project's columns")

// ColumnRepository handles persistence for board columns. Column
// positions are dense per project (0..n-1); every mutation that touches
// them runs in a transaction that restores the invariant before commit.
type ColumnRepository struct {
	*CRUD[types.Column]
	db *sql.DB
}

func NewColumnRepository(db *sql.DB) *ColumnRepository {
	return &ColumnRepository{
		db: db,
		CRUD: NewCRUD[types.Column](db, Mapping[types.Column]{
			Table: "columns",
			Columns: []string{
				"id", "project_id", "title", "position",
				"created_at", "updated_at", "deleted_at",
			},
			Scan:       scanColumn,
			Insertable: []string{"project_id", "title", "position"},
			Patchable:  []string{"title"},
		}),
	}
}

func scanColumn(s RowScanner) (types.Column, error) {
	var c types.Column
	err := s.Scan(
		&c.ID,
		&c.ProjectID,
		&c.Title,
		&c.Position,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	return c, err
}

// CreateAtTail inserts a column at the next free position of the
// project. The position is computed and the row inserted in one
// transaction so two concurrent creates cannot claim the same slot.
func (r *ColumnRepository) CreateAtTail(ctx context.Context, projectID int, title string) (types.Column, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Column{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Postgres does not allow FOR UPDATE on an aggregate select, so the
	// project row serializes concurrent tail inserts instead.
	const lockQuery = `
		SELECT id FROM projects
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`
	var lockedProject int
	if err := tx.QueryRowContext(ctx, lockQuery, projectID).Scan(&lockedProject); err != nil {
		return types.Column{}, err
	}

	const posQuery = `
		SELECT COALESCE(MAX(position) + 1, 0)
		FROM columns
		WHERE project_id = $1 AND deleted_at IS NULL`
	var position int
	if err := tx.QueryRowContext(ctx, posQuery, projectID).Scan(&position); err != nil {
		return types.Column{}, err
	}

	column, err := r.WithTx(tx).Create(ctx, Values{
		"project_id": projectID,
		"title":      title,
		"position":   position,
	})
	if err != nil {
		return types.Column{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Column{}, err
	}
	return column, nil
}

// Reorder rewrites column positions to match orderedIDs. The id set
// must be exactly the project's live columns; otherwise nothing is
// written and ErrReorderMismatch is returned.
func (r *ColumnRepository) Reorder(ctx context.Context, projectID int, orderedIDs []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const currentQuery = `
		SELECT id FROM columns
		WHERE project_id = $1 AND deleted_at IS NULL
		ORDER BY position
		FOR UPDATE`
	rows, err := tx.QueryContext(ctx, currentQuery, projectID)
	if err != nil {
		return err
	}
	existing := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		existing[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(orderedIDs) != len(existing) {
		return ErrReorderMismatch
	}
	seen := make(map[int]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !existing[id] || seen[id] {
			return ErrReorderMismatch
		}
		seen[id] = true
	}

	const updateQuery = `
		UPDATE columns SET position = $1, updated_at = now()
		WHERE id = $2 AND project_id = $3`
	for position, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, updateQuery, position, id, projectID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SoftDeleteAndCompact soft-deletes a column and closes the position gap
// it leaves behind, keeping the remaining columns dense.
func (r *ColumnRepository) SoftDeleteAndCompact(ctx context.Context, id int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const lockQuery = `
		SELECT project_id, position FROM columns
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`
	var projectID, position int
	if err := tx.QueryRowContext(ctx, lockQuery, id).Scan(&projectID, &position); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	const deleteQuery = `
		UPDATE columns SET deleted_at = now(), updated_at = now()
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, deleteQuery, id); err != nil {
		return false, err
	}

	const shiftQuery = `
		UPDATE columns SET position = position - 1, updated_at = now()
		WHERE project_id = $1 AND position > $2 AND deleted_at IS NULL`
	if _, err := tx.ExecContext(ctx, shiftQuery, projectID, position); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
