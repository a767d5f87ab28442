package services

import (
	"context"
	"errors"
	"strings"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// ColumnService encapsulates board column use-cases. It owns the dense
// position invariant together with the column repository.
type ColumnService struct {
	*CRUDService[types.Column]
	repo *store.ColumnRepository
}

func NewColumnService(repo *store.ColumnRepository) *ColumnService {
	return &ColumnService{
		CRUDService: NewCRUDService[types.Column]("Column", repo),
		repo:        repo,
	}
}

// CreateAtTail appends a new column to the project's board.
func (s *ColumnService) CreateAtTail(ctx context.Context, projectID int, title string) (types.Column, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return types.Column{}, apperr.Validation("invalid column", apperr.Detail{
			Field: "title", Reason: "title is required", Code: "required",
		})
	}
	return s.repo.CreateAtTail(ctx, projectID, title)
}

// ListForProject returns the project's columns in board order.
func (s *ColumnService) ListForProject(ctx context.Context, projectID int) ([]types.Column, error) {
	return s.repo.FindAll(ctx, store.ListOptions{
		Where:     store.Values{"project_id": projectID},
		SortBy:    "position",
		SortOrder: "ASC",
	})
}

// Reorder rewrites the board order to match orderedIDs.
func (s *ColumnService) Reorder(ctx context.Context, projectID int, orderedIDs []int) ([]types.Column, error) {
	if err := s.repo.Reorder(ctx, projectID, orderedIDs); err != nil {
		if errors.Is(err, store.ErrReorderMismatch) {
			return nil, apperr.Validation("invalid column order", apperr.Detail{
				Field: "column_ids", Reason: "ids must match the project's columns exactly", Code: "order_mismatch",
			})
		}
		return nil, err
	}
	return s.ListForProject(ctx, projectID)
}

// Remove soft-deletes a column and keeps the remaining positions dense.
func (s *ColumnService) Remove(ctx context.Context, id int) error {
	removed, err := s.repo.SoftDeleteAndCompact(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("Column with ID %d not found", id)
	}
	return nil
}
