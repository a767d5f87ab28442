package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/storage"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// AttachmentService uploads task files to object storage and tracks
// their metadata rows.
type AttachmentService struct {
	*CRUDService[types.Attachment]
	repo    *store.AttachmentRepository
	tasks   *store.TaskRepository
	objects storage.ObjectStorage
}

func NewAttachmentService(repo *store.AttachmentRepository, tasks *store.TaskRepository, objects storage.ObjectStorage) *AttachmentService {
	return &AttachmentService{
		CRUDService: NewCRUDService[types.Attachment]("Attachment", repo),
		repo:        repo,
		tasks:       tasks,
		objects:     objects,
	}
}

// Upload stores the file bytes and records an attachment row on the task.
func (s *AttachmentService) Upload(ctx context.Context, taskID, userID int, fileName, contentType string, size int64, r io.Reader) (types.Attachment, error) {
	if strings.TrimSpace(fileName) == "" {
		return types.Attachment{}, apperr.Validation("invalid attachment", apperr.Detail{
			Field: "file_name", Reason: "file_name is required", Code: "required",
		})
	}
	task, found, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return types.Attachment{}, err
	}
	if !found {
		return types.Attachment{}, apperr.NotFound("Task with ID %d not found", taskID)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("projects/%d/%s", task.ProjectID, uuid.NewString())
	if err := s.objects.Put(ctx, key, r, size, contentType); err != nil {
		return types.Attachment{}, fmt.Errorf("upload attachment: %w", err)
	}

	attachment, err := s.Create(ctx, store.Values{
		"task_id":      taskID,
		"project_id":   task.ProjectID,
		"uploaded_by":  userID,
		"file_name":    fileName,
		"content_type": contentType,
		"size_bytes":   size,
		"object_key":   key,
	})
	if err != nil {
		// Orphaned objects are harmless but worth cleaning up.
		if cleanupErr := s.objects.Delete(ctx, key); cleanupErr != nil {
			logrus.WithError(cleanupErr).WithField("object_key", key).Warn("failed to clean up orphaned object")
		}
		return types.Attachment{}, err
	}
	return attachment, nil
}

// Download opens the attachment's bytes. The caller must close the reader.
func (s *AttachmentService) Download(ctx context.Context, id int) (types.Attachment, io.ReadCloser, error) {
	attachment, err := s.GetOrFail(ctx, id)
	if err != nil {
		return types.Attachment{}, nil, err
	}
	reader, err := s.objects.Get(ctx, attachment.ObjectKey)
	if err != nil {
		return types.Attachment{}, nil, fmt.Errorf("open attachment %d: %w", id, err)
	}
	return attachment, reader, nil
}

// Remove deletes the stored object and then the metadata row.
func (s *AttachmentService) Remove(ctx context.Context, id int) error {
	attachment, err := s.GetOrFail(ctx, id)
	if err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, attachment.ObjectKey); err != nil {
		return fmt.Errorf("delete attachment object: %w", err)
	}
	return s.CRUDService.Remove(ctx, id)
}

// ListForTask returns a task's attachments, newest first.
func (s *AttachmentService) ListForTask(ctx context.Context, taskID int) ([]types.Attachment, error) {
	return s.repo.FindAll(ctx, store.ListOptions{
		Where:     store.Values{"task_id": taskID},
		SortBy:    "created_at",
		SortOrder: "DESC",
	})
}
