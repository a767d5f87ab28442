package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/types"
)

// CommentHandler provides HTTP handlers for task comments. Routes mount
// under a task, behind the membership guard.
type CommentHandler struct {
	comments *services.CommentService
}

// NewCommentHandler constructs a handler with the provided dependencies.
func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// Register mounts comment routes on the given router. Deleting is
// restricted to the comment's author (or an admin).
func (h *CommentHandler) Register(r chi.Router) {
	r.Post("/", h.CreateComment)
	r.Get("/", h.ListComments)
	r.With(RequireResourceOwner("commentID", h.commentAuthor)).
		Delete("/{commentID}", h.DeleteComment)
}

// CreateComment adds a comment to the task.
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
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
	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	comment, err := h.comments.CreateOnTask(r.Context(), taskID, principal.ID, req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Comment created successfully", comment)
}

// ListComments returns the task's comments oldest-first.
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	taskID, err := urlParamID(r, "taskID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	comments, err := h.comments.ListForTask(r.Context(), taskID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if comments == nil {
		comments = []types.Comment{}
	}
	writeSuccess(w, r, http.StatusOK, "Comment list retrieved successfully", comments)
}

// DeleteComment soft-deletes a comment.
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := urlParamID(r, "commentID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.comments.Remove(r.Context(), commentID); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Comment deleted successfully", nil)
}

func (h *CommentHandler) commentAuthor(ctx context.Context, id int) ([]int, error) {
	comment, err := h.comments.GetOrFail(ctx, id)
	if err != nil {
		return nil, err
	}
	return []int{comment.AuthorID}, nil
}
