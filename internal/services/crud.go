// Package services contains the business-rule layer. The generic
// CRUDService turns repository misses into typed not-found errors and
// is the single choke point every mutating operation routes through;
// feature services compose it and add their domain rules on top.
package services

import (
	"context"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/pagination"
	"github.com/taskboard/apiserver/internal/store"
)

// Repository defines the persistence operations the generic service
// needs. store.CRUD satisfies it; tests use in-memory fakes.
type Repository[T any] interface {
	FindByID(ctx context.Context, id int) (T, bool, error)
	FindByIDAny(ctx context.Context, id int) (T, bool, error)
	FindOne(ctx context.Context, where store.Values) (T, bool, error)
	FindAll(ctx context.Context, opts store.ListOptions) ([]T, error)
	Count(ctx context.Context, opts store.ListOptions) (int, error)
	Create(ctx context.Context, values store.Values) (T, error)
	Update(ctx context.Context, id int, patch store.Values) (T, bool, error)
	SoftDelete(ctx context.Context, id int) (bool, error)
	Restore(ctx context.Context, id int) (bool, error)
	Delete(ctx context.Context, id int) (bool, error)
}

// CRUDService is the generic business layer over one entity type. The
// entity name only feeds human-readable messages.
type CRUDService[T any] struct {
	name string
	repo Repository[T]
}

func NewCRUDService[T any](name string, repo Repository[T]) *CRUDService[T] {
	return &CRUDService[T]{name: name, repo: repo}
}

// EntityName returns the human-readable entity name used in messages.
func (s *CRUDService[T]) EntityName() string {
	return s.name
}

// GetOrFail fetches a live entity or fails with NotFound.
func (s *CRUDService[T]) GetOrFail(ctx context.Context, id int) (T, error) {
	entity, found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return entity, err
	}
	if !found {
		return entity, apperr.NotFound("%s with ID %d not found", s.name, id)
	}
	return entity, nil
}

// getAnyOrFail fetches an entity regardless of soft-delete state.
func (s *CRUDService[T]) getAnyOrFail(ctx context.Context, id int) (T, error) {
	entity, found, err := s.repo.FindByIDAny(ctx, id)
	if err != nil {
		return entity, err
	}
	if !found {
		return entity, apperr.NotFound("%s with ID %d not found", s.name, id)
	}
	return entity, nil
}

// List passes through to the repository.
func (s *CRUDService[T]) List(ctx context.Context, opts store.ListOptions) ([]T, error) {
	return s.repo.FindAll(ctx, opts)
}

// ListPage runs a windowed list plus a count over the same filter and
// derives the page metadata from the live total.
func (s *CRUDService[T]) ListPage(ctx context.Context, where store.Values, page pagination.Request) ([]T, pagination.Meta, error) {
	opts := store.ListOptions{
		Where:     where,
		SortBy:    page.SortBy,
		SortOrder: page.SortOrder,
		Limit:     page.Limit,
		Offset:    page.Offset(),
	}
	items, err := s.repo.FindAll(ctx, opts)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	total, err := s.repo.Count(ctx, store.ListOptions{Where: where})
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return items, pagination.NewMeta(page.Page, page.Limit, total), nil
}

// Create persists a new entity. The base service adds no validation of
// its own; that happens at the DTO boundary or in feature services.
func (s *CRUDService[T]) Create(ctx context.Context, values store.Values) (T, error) {
	return s.repo.Create(ctx, values)
}

// Update checks existence first, so patching an absent entity fails
// with NotFound instead of silently writing zero rows. A delete racing
// in between the check and the write also surfaces as NotFound.
func (s *CRUDService[T]) Update(ctx context.Context, id int, patch store.Values) (T, error) {
	if _, err := s.GetOrFail(ctx, id); err != nil {
		var zero T
		return zero, err
	}
	entity, found, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return entity, err
	}
	if !found {
		return entity, apperr.NotFound("%s with ID %d not found", s.name, id)
	}
	return entity, nil
}

// Remove soft-deletes an entity, failing with NotFound when it does not
// exist or is already deleted.
func (s *CRUDService[T]) Remove(ctx context.Context, id int) error {
	if _, err := s.GetOrFail(ctx, id); err != nil {
		return err
	}
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("%s with ID %d not found", s.name, id)
	}
	return nil
}

// Delete removes an entity permanently. It accepts soft-deleted rows,
// so a tombstone can still be purged.
func (s *CRUDService[T]) Delete(ctx context.Context, id int) error {
	if _, err := s.getAnyOrFail(ctx, id); err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("%s with ID %d not found", s.name, id)
	}
	return nil
}

// Restore clears an entity's soft-delete marker and returns the live
// row. Restoring an entity that was never deleted is a no-op returning
// it unchanged.
func (s *CRUDService[T]) Restore(ctx context.Context, id int) (T, error) {
	entity, err := s.getAnyOrFail(ctx, id)
	if err != nil {
		return entity, err
	}
	restored, err := s.repo.Restore(ctx, id)
	if err != nil {
		return entity, err
	}
	if !restored {
		return entity, nil
	}
	return s.GetOrFail(ctx, id)
}

// Count counts live entities matching the filter.
func (s *CRUDService[T]) Count(ctx context.Context, where store.Values) (int, error) {
	return s.repo.Count(ctx, store.ListOptions{Where: where})
}

// BulkCreate creates entities one by one. There is no all-or-nothing
// guarantee: a failure partway leaves the prior creates committed and
// returns them alongside the error.
func (s *CRUDService[T]) BulkCreate(ctx context.Context, valueSets []store.Values) ([]T, error) {
	created := make([]T, 0, len(valueSets))
	for _, values := range valueSets {
		entity, err := s.repo.Create(ctx, values)
		if err != nil {
			return created, err
		}
		created = append(created, entity)
	}
	return created, nil
}

// BulkRemove soft-deletes ids sequentially, stopping at the first
// failure. The count reports how many deletes landed before the stop;
// prior deletes are not rolled back.
func (s *CRUDService[T]) BulkRemove(ctx context.Context, ids []int) (int, error) {
	removed := 0
	for _, id := range ids {
		if err := s.Remove(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
