package services

import (
	"context"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// LabelService encapsulates label use-cases, including the task link
// table.
type LabelService struct {
	*CRUDService[types.Label]
	repo  *store.LabelRepository
	tasks *store.TaskRepository
}

func NewLabelService(repo *store.LabelRepository, tasks *store.TaskRepository) *LabelService {
	return &LabelService{
		CRUDService: NewCRUDService[types.Label]("Label", repo),
		repo:        repo,
		tasks:       tasks,
	}
}

// CreateInProject creates a label, enforcing per-project name
// uniqueness in a readable way before the DB constraint would.
func (s *LabelService) CreateInProject(ctx context.Context, projectID int, name, color string) (types.Label, error) {
	if name == "" {
		return types.Label{}, apperr.Validation("invalid label", apperr.Detail{
			Field: "name", Reason: "name is required", Code: "required",
		})
	}
	if _, exists, err := s.repo.FindOne(ctx, store.Values{"project_id": projectID, "name": name}); err != nil {
		return types.Label{}, err
	} else if exists {
		return types.Label{}, apperr.Conflict("label %q already exists in project %d", name, projectID)
	}
	if color == "" {
		color = "#808080"
	}
	return s.Create(ctx, store.Values{
		"project_id": projectID,
		"name":       name,
		"color":      color,
	})
}

// Attach links a label to a task in the same project.
func (s *LabelService) Attach(ctx context.Context, taskID, labelID int) error {
	label, err := s.GetOrFail(ctx, labelID)
	if err != nil {
		return err
	}
	task, found, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFound("Task with ID %d not found", taskID)
	}
	if task.ProjectID != label.ProjectID {
		return apperr.Validation("invalid label attachment", apperr.Detail{
			Field: "label_id", Reason: "label belongs to a different project", Code: "cross_project",
		})
	}
	return s.repo.Attach(ctx, taskID, labelID)
}

// Detach unlinks a label from a task.
func (s *LabelService) Detach(ctx context.Context, taskID, labelID int) error {
	detached, err := s.repo.Detach(ctx, taskID, labelID)
	if err != nil {
		return err
	}
	if !detached {
		return apperr.NotFound("label %d is not attached to task %d", labelID, taskID)
	}
	return nil
}

// ListForTask returns the labels attached to a task.
func (s *LabelService) ListForTask(ctx context.Context, taskID int) ([]types.Label, error) {
	return s.repo.ListForTask(ctx, taskID)
}
