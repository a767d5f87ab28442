package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// CommentService encapsulates task comment use-cases.
type CommentService struct {
	*CRUDService[types.Comment]
	repo   *store.CommentRepository
	tasks  *store.TaskRepository
	events EventPublisher
}

func NewCommentService(repo *store.CommentRepository, tasks *store.TaskRepository, events EventPublisher) *CommentService {
	return &CommentService{
		CRUDService: NewCRUDService[types.Comment]("Comment", repo),
		repo:        repo,
		tasks:       tasks,
		events:      events,
	}
}

// CreateOnTask adds a comment and notifies the task's creator.
func (s *CommentService) CreateOnTask(ctx context.Context, taskID, authorID int, body string) (types.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return types.Comment{}, apperr.Validation("invalid comment", apperr.Detail{
			Field: "body", Reason: "body is required", Code: "required",
		})
	}

	task, found, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return types.Comment{}, err
	}
	if !found {
		return types.Comment{}, apperr.NotFound("Task with ID %d not found", taskID)
	}

	comment, err := s.Create(ctx, store.Values{
		"task_id":   taskID,
		"author_id": authorID,
		"body":      body,
	})
	if err != nil {
		return types.Comment{}, err
	}

	if task.CreatorID != authorID {
		publish(ctx, s.events, types.Event{
			ID:           uuid.NewString(),
			Kind:         types.EventCommentAdded,
			ProjectID:    task.ProjectID,
			ActorID:      authorID,
			TargetUserID: task.CreatorID,
			TaskID:       task.ID,
			Message:      fmt.Sprintf("New comment on task %q", task.Title),
			OccurredAt:   time.Now(),
		})
	}
	return comment, nil
}

// ListForTask returns a task's comments, oldest first.
func (s *CommentService) ListForTask(ctx context.Context, taskID int) ([]types.Comment, error) {
	return s.repo.FindAll(ctx, store.ListOptions{
		Where:     store.Values{"task_id": taskID},
		SortBy:    "created_at",
		SortOrder: "ASC",
	})
}
