package services

import (
	"context"
	"strconv"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/pagination"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// NotificationService serves per-user inboxes and materializes bus
// events into notification rows.
type NotificationService struct {
	*CRUDService[types.Notification]
	repo *store.NotificationRepository
}

func NewNotificationService(repo *store.NotificationRepository) *NotificationService {
	return &NotificationService{
		CRUDService: NewCRUDService[types.Notification]("Notification", repo),
		repo:        repo,
	}
}

// ListCursor pages the user's inbox newest-first using an id cursor.
func (s *NotificationService) ListCursor(ctx context.Context, userID, limit int, before *int) (pagination.CursorPage[types.Notification], error) {
	if limit < 1 {
		limit = pagination.DefaultLimit
	}
	if limit > pagination.MaxLimit {
		limit = pagination.MaxLimit
	}
	items, err := s.repo.ListBefore(ctx, userID, before, limit+1)
	if err != nil {
		return pagination.CursorPage[types.Notification]{}, err
	}
	return pagination.Cut(items, limit, func(n types.Notification) string {
		return strconv.Itoa(n.ID)
	}), nil
}

// MarkRead stamps one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID int) error {
	marked, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !marked {
		// Either it does not exist, belongs to someone else, or is
		// already read. Distinguish the last case so reads stay idempotent.
		n, found, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if found && n.UserID == userID && n.ReadAt != nil {
			return nil
		}
		return apperr.NotFound("Notification with ID %d not found", id)
	}
	return nil
}

// MarkAllRead stamps every unread notification of the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// CountUnread counts the user's unread notifications.
func (s *NotificationService) CountUnread(ctx context.Context, userID int) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// HandleEvent materializes a bus event into a notification row. Events
// without a target, or whose target is the actor themselves, are dropped.
func (s *NotificationService) HandleEvent(ctx context.Context, ev types.Event) error {
	if ev.TargetUserID == 0 || ev.TargetUserID == ev.ActorID {
		return nil
	}
	values := store.Values{
		"user_id":    ev.TargetUserID,
		"project_id": ev.ProjectID,
		"kind":       ev.Kind,
		"message":    ev.Message,
	}
	if ev.TaskID != 0 {
		values["task_id"] = ev.TaskID
	} else {
		values["task_id"] = nil
	}
	_, err := s.Create(ctx, values)
	return err
}
