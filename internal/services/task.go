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

// NewTaskInput carries the fields for creating a task.
type NewTaskInput struct {
	ProjectID   int
	ColumnID    int
	CreatorID   int
	Title       string
	Description string
	Priority    string
	AssigneeID  *int
	DueAt       *time.Time
}

// TaskService encapsulates task use-cases: creation at the column tail,
// board moves, and assignment events.
type TaskService struct {
	*CRUDService[types.Task]
	repo    *store.TaskRepository
	columns *store.ColumnRepository
	events  EventPublisher
}

func NewTaskService(repo *store.TaskRepository, columns *store.ColumnRepository, events EventPublisher) *TaskService {
	return &TaskService{
		CRUDService: NewCRUDService[types.Task]("Task", repo),
		repo:        repo,
		columns:     columns,
		events:      events,
	}
}

// CreateInColumn creates a task at the tail of the given column.
func (s *TaskService) CreateInColumn(ctx context.Context, in NewTaskInput) (types.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return types.Task{}, apperr.Validation("invalid task", apperr.Detail{
			Field: "title", Reason: "title is required", Code: "required",
		})
	}
	if in.Priority == "" {
		in.Priority = types.PriorityMedium
	}
	switch in.Priority {
	case types.PriorityLow, types.PriorityMedium, types.PriorityHigh:
	default:
		return types.Task{}, apperr.Validation("invalid task", apperr.Detail{
			Field: "priority", Reason: "priority must be low, medium or high", Code: "enum",
		})
	}
	if err := s.columnInProject(ctx, in.ColumnID, in.ProjectID); err != nil {
		return types.Task{}, err
	}

	task, err := s.repo.CreateAtTail(ctx, store.Values{
		"project_id":  in.ProjectID,
		"column_id":   in.ColumnID,
		"title":       in.Title,
		"description": in.Description,
		"priority":    in.Priority,
		"creator_id":  in.CreatorID,
		"assignee_id": in.AssigneeID,
		"due_at":      in.DueAt,
	})
	if err != nil {
		return types.Task{}, err
	}

	if in.AssigneeID != nil && *in.AssigneeID != in.CreatorID {
		s.publishAssigned(ctx, task, in.CreatorID, *in.AssigneeID)
	}
	return task, nil
}

// ListForColumn returns a column's live tasks in board order.
func (s *TaskService) ListForColumn(ctx context.Context, columnID int) ([]types.Task, error) {
	return s.repo.FindAll(ctx, store.ListOptions{
		Where:     store.Values{"column_id": columnID},
		SortBy:    "position",
		SortOrder: "ASC",
	})
}

// Move relocates a task to (targetColumn, targetPosition). The target
// column must belong to the task's project; positions stay dense in
// both the source and the target column.
func (s *TaskService) Move(ctx context.Context, actorID, taskID, targetColumn, targetPosition int) (types.Task, error) {
	task, err := s.GetOrFail(ctx, taskID)
	if err != nil {
		return types.Task{}, err
	}
	if err := s.columnInProject(ctx, targetColumn, task.ProjectID); err != nil {
		return types.Task{}, err
	}

	moved, found, err := s.repo.Move(ctx, taskID, targetColumn, targetPosition)
	if err != nil {
		return types.Task{}, err
	}
	if !found {
		return types.Task{}, apperr.NotFound("Task with ID %d not found", taskID)
	}

	if moved.AssigneeID != nil && *moved.AssigneeID != actorID {
		publish(ctx, s.events, types.Event{
			ID:           uuid.NewString(),
			Kind:         types.EventTaskMoved,
			ProjectID:    moved.ProjectID,
			ActorID:      actorID,
			TargetUserID: *moved.AssigneeID,
			TaskID:       moved.ID,
			Message:      fmt.Sprintf("Task %q was moved", moved.Title),
			OccurredAt:   time.Now(),
		})
	}
	return moved, nil
}

// Assign patches the task's assignee and notifies the new one.
func (s *TaskService) Assign(ctx context.Context, actorID, taskID int, assigneeID *int) (types.Task, error) {
	task, err := s.Update(ctx, taskID, store.Values{"assignee_id": assigneeID})
	if err != nil {
		return types.Task{}, err
	}
	if assigneeID != nil && *assigneeID != actorID {
		s.publishAssigned(ctx, task, actorID, *assigneeID)
	}
	return task, nil
}

// Remove soft-deletes a task and keeps its column's positions dense.
func (s *TaskService) Remove(ctx context.Context, id int) error {
	removed, err := s.repo.SoftDeleteAndCompact(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("Task with ID %d not found", id)
	}
	return nil
}

func (s *TaskService) columnInProject(ctx context.Context, columnID, projectID int) error {
	column, found, err := s.columns.FindByID(ctx, columnID)
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFound("Column with ID %d not found", columnID)
	}
	if column.ProjectID != projectID {
		return apperr.Validation("invalid column", apperr.Detail{
			Field: "column_id", Reason: "column belongs to a different project", Code: "cross_project",
		})
	}
	return nil
}

func (s *TaskService) publishAssigned(ctx context.Context, task types.Task, actorID, assigneeID int) {
	publish(ctx, s.events, types.Event{
		ID:           uuid.NewString(),
		Kind:         types.EventTaskAssigned,
		ProjectID:    task.ProjectID,
		ActorID:      actorID,
		TargetUserID: assigneeID,
		TaskID:       task.ID,
		Message:      fmt.Sprintf("You were assigned to task %q", task.Title),
		OccurredAt:   time.Now(),
	})
}
