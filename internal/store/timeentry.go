package store

import (
	"context"
	"database/sql"

	"github.com/taskboard/apiserver/types"
)

// TimeEntryRepository handles persistence for time entries.
type TimeEntryRepository struct {
	*CRUD[types.TimeEntry]
	db *sql.DB
}

func NewTimeEntryRepository(db *sql.DB) *TimeEntryRepository {
	return &TimeEntryRepository{
		db: db,
		CRUD: NewCRUD[types.TimeEntry](db, Mapping[types.TimeEntry]{
			Table: "time_entries",
			Columns: []string{
				"id", "task_id", "user_id", "note", "started_at", "stopped_at",
				"created_at", "updated_at", "deleted_at",
			},
			Scan:       scanTimeEntry,
			Insertable: []string{"task_id", "user_id", "note", "started_at"},
			Patchable:  []string{"note"},
		}),
	}
}

func scanTimeEntry(s RowScanner) (types.TimeEntry, error) {
	var e types.TimeEntry
	err := s.Scan(
		&e.ID,
		&e.TaskID,
		&e.UserID,
		&e.Note,
		&e.StartedAt,
		&e.StoppedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.DeletedAt,
	)
	return e, err
}

// FindRunning fetches the open timer of a (task, user) pair, if any.
func (r *TimeEntryRepository) FindRunning(ctx context.Context, taskID, userID int) (types.TimeEntry, bool, error) {
	return r.FindOne(ctx, Values{
		"task_id":    taskID,
		"user_id":    userID,
		"stopped_at": nil,
	})
}

// Stop closes the timer, reporting whether it was still running.
func (r *TimeEntryRepository) Stop(ctx context.Context, id int) (bool, error) {
	const query = `
		UPDATE time_entries SET stopped_at = now(), updated_at = now()
		WHERE id = $1 AND stopped_at IS NULL AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
