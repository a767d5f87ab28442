package services

import (
	"context"
	"time"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// TimeEntryService encapsulates timer use-cases. At most one timer may
// run per (task, user) pair; the DB enforces the same with a partial
// unique index in case two starts race.
type TimeEntryService struct {
	*CRUDService[types.TimeEntry]
	repo  *store.TimeEntryRepository
	tasks *store.TaskRepository
}

func NewTimeEntryService(repo *store.TimeEntryRepository, tasks *store.TaskRepository) *TimeEntryService {
	return &TimeEntryService{
		CRUDService: NewCRUDService[types.TimeEntry]("Time entry", repo),
		repo:        repo,
		tasks:       tasks,
	}
}

// Start opens a timer on the task for the user.
func (s *TimeEntryService) Start(ctx context.Context, taskID, userID int, note string) (types.TimeEntry, error) {
	if _, found, err := s.tasks.FindByID(ctx, taskID); err != nil {
		return types.TimeEntry{}, err
	} else if !found {
		return types.TimeEntry{}, apperr.NotFound("Task with ID %d not found", taskID)
	}
	if _, running, err := s.repo.FindRunning(ctx, taskID, userID); err != nil {
		return types.TimeEntry{}, err
	} else if running {
		return types.TimeEntry{}, apperr.Conflict("a timer is already running on task %d", taskID)
	}

	return s.Create(ctx, store.Values{
		"task_id":    taskID,
		"user_id":    userID,
		"note":       note,
		"started_at": time.Now(),
	})
}

// Stop closes the user's running timer on the task and returns the
// finished entry.
func (s *TimeEntryService) Stop(ctx context.Context, taskID, userID int) (types.TimeEntry, error) {
	entry, running, err := s.repo.FindRunning(ctx, taskID, userID)
	if err != nil {
		return types.TimeEntry{}, err
	}
	if !running {
		return types.TimeEntry{}, apperr.NotFound("no running timer on task %d", taskID)
	}
	stopped, err := s.repo.Stop(ctx, entry.ID)
	if err != nil {
		return types.TimeEntry{}, err
	}
	if !stopped {
		return types.TimeEntry{}, apperr.NotFound("no running timer on task %d", taskID)
	}
	return s.GetOrFail(ctx, entry.ID)
}

// ListForTask returns a task's time entries, newest first.
func (s *TimeEntryService) ListForTask(ctx context.Context, taskID int) ([]types.TimeEntry, error) {
	return s.repo.FindAll(ctx, store.ListOptions{
		Where:     store.Values{"task_id": taskID},
		SortBy:    "started_at",
		SortOrder: "DESC",
	})
}
