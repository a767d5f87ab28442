package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/taskboard/apiserver/types"
)

// TaskRepository handles persistence for tasks. Task positions are
// dense per column, same invariant and same transactional discipline as
// column positions.
type TaskRepository struct {
	*CRUD[types.Task]
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{
		db: db,
		CRUD: NewCRUD[types.Task](db, Mapping[types.Task]{
			Table: "tasks",
			Columns: []string{
				"id", "project_id", "column_id", "title", "description",
				"priority", "position", "creator_id", "assignee_id", "due_at",
				"created_at", "updated_at", "deleted_at",
			},
			Scan:       scanTask,
			Insertable: []string{"project_id", "column_id", "title", "description", "priority", "position", "creator_id", "assignee_id", "due_at"},
			Patchable:  []string{"title", "description", "priority", "assignee_id", "due_at"},
		}),
	}
}

func scanTask(s RowScanner) (types.Task, error) {
	var t types.Task
	err := s.Scan(
		&t.ID,
		&t.ProjectID,
		&t.ColumnID,
		&t.Title,
		&t.Description,
		&t.Priority,
		&t.Position,
		&t.CreatorID,
		&t.AssigneeID,
		&t.DueAt,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.DeletedAt,
	)
	return t, err
}

// CreateAtTail inserts a task at the next free position of the column.
func (r *TaskRepository) CreateAtTail(ctx context.Context, values Values) (types.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Task{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Postgres does not allow FOR UPDATE on an aggregate select, so the
	// column row serializes concurrent tail inserts instead.
	const lockQuery = `
		SELECT id FROM columns
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`
	var lockedColumn int
	if err := tx.QueryRowContext(ctx, lockQuery, values["column_id"]).Scan(&lockedColumn); err != nil {
		return types.Task{}, err
	}

	const posQuery = `
		SELECT COALESCE(MAX(position) + 1, 0)
		FROM tasks
		WHERE column_id = $1 AND deleted_at IS NULL`
	var position int
	if err := tx.QueryRowContext(ctx, posQuery, values["column_id"]).Scan(&position); err != nil {
		return types.Task{}, err
	}
	values["position"] = position

	task, err := r.WithTx(tx).Create(ctx, values)
	if err != nil {
		return types.Task{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Task{}, err
	}
	return task, nil
}

// Move relocates a task to targetColumn at targetPosition in a single
// transaction: the source column closes its gap, the target column
// opens one, and the task lands in it. Positions stay dense in both
// columns. targetPosition is clamped to the target's valid range.
// The found flag is false when the task does not exist (or is deleted).
func (r *TaskRepository) Move(ctx context.Context, taskID, targetColumn, targetPosition int) (types.Task, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Task{}, false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const lockQuery = `
		SELECT column_id, position FROM tasks
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`
	var sourceColumn, sourcePosition int
	if err := tx.QueryRowContext(ctx, lockQuery, taskID).Scan(&sourceColumn, &sourcePosition); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, false, nil
		}
		return types.Task{}, false, err
	}

	const countQuery = `
		SELECT COUNT(1) FROM tasks
		WHERE column_id = $1 AND deleted_at IS NULL`
	var targetCount int
	if err := tx.QueryRowContext(ctx, countQuery, targetColumn).Scan(&targetCount); err != nil {
		return types.Task{}, false, err
	}

	// The valid target range is 0..n for a foreign column and 0..n-1
	// when moving within the same column (the task itself is part of n).
	maxPosition := targetCount
	if targetColumn == sourceColumn {
		maxPosition = targetCount - 1
	}
	if targetPosition < 0 {
		targetPosition = 0
	}
	if targetPosition > maxPosition {
		targetPosition = maxPosition
	}

	if targetColumn == sourceColumn && targetPosition == sourcePosition {
		if err := tx.Commit(); err != nil {
			return types.Task{}, false, err
		}
		return r.mustFind(ctx, taskID)
	}

	const closeGap = `
		UPDATE tasks SET position = position - 1, updated_at = now()
		WHERE column_id = $1 AND position > $2 AND deleted_at IS NULL`
	if _, err := tx.ExecContext(ctx, closeGap, sourceColumn, sourcePosition); err != nil {
		return types.Task{}, false, err
	}

	const openGap = `
		UPDATE tasks SET position = position + 1, updated_at = now()
		WHERE column_id = $1 AND position >= $2 AND deleted_at IS NULL AND id <> $3`
	if _, err := tx.ExecContext(ctx, openGap, targetColumn, targetPosition, taskID); err != nil {
		return types.Task{}, false, err
	}

	const place = `
		UPDATE tasks SET column_id = $1, position = $2, updated_at = now()
		WHERE id = $3`
	if _, err := tx.ExecContext(ctx, place, targetColumn, targetPosition, taskID); err != nil {
		return types.Task{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return types.Task{}, false, err
	}
	return r.mustFind(ctx, taskID)
}

// SoftDeleteAndCompact soft-deletes a task and closes the position gap
// in its column.
func (r *TaskRepository) SoftDeleteAndCompact(ctx context.Context, id int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const lockQuery = `
		SELECT column_id, position FROM tasks
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`
	var columnID, position int
	if err := tx.QueryRowContext(ctx, lockQuery, id).Scan(&columnID, &position); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	const deleteQuery = `
		UPDATE tasks SET deleted_at = now(), updated_at = now()
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, deleteQuery, id); err != nil {
		return false, err
	}

	const shiftQuery = `
		UPDATE tasks SET position = position - 1, updated_at = now()
		WHERE column_id = $1 AND position > $2 AND deleted_at IS NULL`
	if _, err := tx.ExecContext(ctx, shiftQuery, columnID, position); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *TaskRepository) mustFind(ctx context.Context, id int) (types.Task, bool, error) {
	task, found, err := r.FindByID(ctx, id)
	if err != nil {
		return types.Task{}, false, err
	}
	return task, found, nil
}
