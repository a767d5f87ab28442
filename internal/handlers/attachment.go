package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/types"
)

const (
	maxMultipartMemory = 32 << 20
	maxAttachmentBytes = 64 << 20
	formFieldFile      = "file"
)

// AttachmentHandler provides HTTP handlers for task file attachments.
// Routes mount under a task, behind the membership guard.
type AttachmentHandler struct {
	attachments *services.AttachmentService
}

// NewAttachmentHandler constructs a handler with the provided dependencies.
func NewAttachmentHandler(attachments *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

// Register mounts attachment routes on the given router. Only the
// uploader (or an admin) may delete an attachment.
func (h *AttachmentHandler) Register(r chi.Router) {
	r.Post("/", h.UploadAttachment)
	r.Get("/", h.ListAttachments)
	r.Get("/{attachmentID}/download", h.DownloadAttachment)
	r.With(RequireResourceOwner("attachmentID", h.attachmentUploader)).
		Delete("/{attachmentID}", h.DeleteAttachment)
}

// UploadAttachment stores a multipart file on the task.
func (h *AttachmentHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	taskID, err := urlParamID(r, "taskID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized"))
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, r, apperr.Validation("invalid multipart form"))
		return
	}
	files := r.MultipartForm.File[formFieldFile]
	if len(files) != 1 {
		writeError(w, r, apperr.Validation("invalid upload", apperr.Detail{
			Field: formFieldFile, Reason: "exactly one file is required", Code: "required",
		}))
		return
	}
	header := files[0]
	if header.Size > maxAttachmentBytes {
		writeError(w, r, apperr.Validation("invalid upload", apperr.Detail{
			Field: formFieldFile, Reason: "file is too large", Code: "too_large",
		}))
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	attachment, err := h.attachments.Upload(
		r.Context(), taskID, principal.ID,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Attachment uploaded successfully", attachment)
}

// ListAttachments returns the task's attachment metadata.
func (h *AttachmentHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	taskID, err := urlParamID(r, "taskID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	attachments, err := h.attachments.ListForTask(r.Context(), taskID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if attachments == nil {
		attachments = []types.Attachment{}
	}
	writeSuccess(w, r, http.StatusOK, "Attachment list retrieved successfully", attachments)
}

// DownloadAttachment streams the file bytes.
func (h *AttachmentHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "attachmentID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	attachment, reader, err := h.attachments.Download(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", attachment.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	if _, err := io.Copy(w, reader); err != nil {
		logrus.WithError(err).WithField("attachment_id", id).Warn("attachment download interrupted")
	}
}

// DeleteAttachment removes the file and its metadata row.
func (h *AttachmentHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "attachmentID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.attachments.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Attachment deleted successfully", nil)
}

func (h *AttachmentHandler) attachmentUploader(ctx context.Context, id int) ([]int, error) {
	attachment, err := h.attachments.GetOrFail(ctx, id)
	if err != nil {
		return nil, err
	}
	return []int{attachment.UploadedBy}, nil
}
