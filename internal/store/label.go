package store

import (
	"context"
	"database/sql"

	"github.com/taskboard/apiserver/types"
)

// LabelRepository handles persistence for labels and the task_labels
// join table.
type LabelRepository struct {
	*CRUD[types.Label]
	db *sql.DB
}

func NewLabelRepository(db *sql.DB) *LabelRepository {
	return &LabelRepository{
		db: db,
		CRUD: NewCRUD[types.Label](db, Mapping[types.Label]{
			Table: "labels",
			Columns: []string{
				"id", "project_id", "name", "color",
				"created_at", "updated_at", "deleted_at",
			},
			Scan:       scanLabel,
			Insertable: []string{"project_id", "name", "color"},
			Patchable:  []string{"name", "color"},
		}),
	}
}

func scanLabel(s RowScanner) (types.Label, error) {
	var l types.Label
	err := s.Scan(
		&l.ID,
		&l.ProjectID,
		&l.Name,
		&l.Color,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.DeletedAt,
	)
	return l, err
}

// Attach links a label to a task. Attaching twice is a no-op.
func (r *LabelRepository) Attach(ctx context.Context, taskID, labelID int) error {
	const query = `
		INSERT INTO task_labels (task_id, label_id)
		VALUES ($1, $2)
		ON CONFLICT (task_id, label_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, taskID, labelID)
	return err
}

// Detach unlinks a label from a task, reporting whether a link existed.
func (r *LabelRepository) Detach(ctx context.Context, taskID, labelID int) (bool, error) {
	const query = `DELETE FROM task_labels WHERE task_id = $1 AND label_id = $2`
	result, err := r.db.ExecContext(ctx, query, taskID, labelID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListForTask returns the live labels attached to a task.
func (r *LabelRepository) ListForTask(ctx context.Context, taskID int) ([]types.Label, error) {
	const query = `
		SELECT l.id, l.project_id, l.name, l.color, l.created_at, l.updated_at, l.deleted_at
		FROM labels l
		JOIN task_labels tl ON tl.label_id = l.id
		WHERE tl.task_id = $1 AND l.deleted_at IS NULL
		ORDER BY l.name`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := make([]types.Label, 0)
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}
