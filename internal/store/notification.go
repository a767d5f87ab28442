package store

import (
	"context"
	"database/sql"

	"github.com/taskboard/apiserver/types"
)

// NotificationRepository handles persistence for per-user notifications.
type NotificationRepository struct {
	*CRUD[types.Notification]
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{
		db: db,
		CRUD: NewCRUD[types.Notification](db, Mapping[types.Notification]{
			Table: "notifications",
			Columns: []string{
				"id", "user_id", "project_id", "task_id", "kind", "message", "read_at",
				"created_at", "updated_at", "deleted_at",
			},
			Scan:       scanNotification,
			Insertable: []string{"user_id", "project_id", "task_id", "kind", "message"},
			Patchable:  []string{},
		}),
	}
}

func scanNotification(s RowScanner) (types.Notification, error) {
	var n types.Notification
	err := s.Scan(
		&n.ID,
		&n.UserID,
		&n.ProjectID,
		&n.TaskID,
		&n.Kind,
		&n.Message,
		&n.ReadAt,
		&n.CreatedAt,
		&n.UpdatedAt,
		&n.DeletedAt,
	)
	return n, err
}

// ListBefore returns up to limit notifications of a user with id below
// the cursor, newest first. A nil cursor starts from the top. Callers
// ask for limit+1 rows to detect whether more pages exist.
func (r *NotificationRepository) ListBefore(ctx context.Context, userID int, before *int, limit int) ([]types.Notification, error) {
	opts := ListOptions{
		Where:     Values{"user_id": userID},
		SortBy:    "id",
		SortOrder: "DESC",
		Limit:     limit,
	}
	if before != nil {
		opts.CursorField = "id"
		opts.CursorBefore = *before
	}
	return r.FindAll(ctx, opts)
}

// MarkRead stamps a single unread notification of the user.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int) (bool, error) {
	const query = `
		UPDATE notifications SET read_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkAllRead stamps every unread notification of the user, returning
// how many were touched.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int) (int, error) {
	const query = `
		UPDATE notifications SET read_at = now(), updated_at = now()
		WHERE user_id = $1 AND read_at IS NULL AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// CountUnread counts the user's unread notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID int) (int, error) {
	return r.Count(ctx, ListOptions{Where: Values{"user_id": userID, "read_at": nil}})
}
