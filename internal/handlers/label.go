package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// LabelHandler provides HTTP handlers for project labels and their
// attachment to tasks.
type LabelHandler struct {
	labels *services.LabelService
}

// NewLabelHandler constructs a handler with the provided dependencies.
func NewLabelHandler(labels *services.LabelService) *LabelHandler {
	return &LabelHandler{labels: labels}
}

// RegisterProject mounts the label catalog routes under a project.
func (h *LabelHandler) RegisterProject(r chi.Router) {
	r.Post("/", h.CreateLabel)
	r.Get("/", h.ListLabels)
	r.Route("/{labelID}", func(r chi.Router) {
		r.Patch("/", h.UpdateLabel)
		r.Delete("/", h.DeleteLabel)
	})
}

// RegisterTask mounts the attach/detach routes under a task.
func (h *LabelHandler) RegisterTask(r chi.Router) {
	r.Get("/", h.ListTaskLabels)
	r.Put("/{labelID}", h.AttachLabel)
	r.Delete("/{labelID}", h.DetachLabel)
}

type LabelUpsertRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateLabel adds a label to the project's catalog.
func (h *LabelHandler) CreateLabel(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req LabelUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	label, err := h.labels.CreateInProject(r.Context(), projectID, req.Name, req.Color)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Label created successfully", label)
}

// ListLabels returns the project's label catalog.
func (h *LabelHandler) ListLabels(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	labels, err := h.labels.List(r.Context(), store.ListOptions{
		Where:     store.Values{"project_id": projectID},
		SortBy:    "name",
		SortOrder: "ASC",
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if labels == nil {
		labels = []types.Label{}
	}
	writeSuccess(w, r, http.StatusOK, "Label list retrieved successfully", labels)
}

// UpdateLabel patches a label's name or color.
func (h *LabelHandler) UpdateLabel(w http.ResponseWriter, r *http.Request) {
	label, err := h.labelInProject(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Name  *string `json:"name"`
		Color *string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	patch := store.Values{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, r, apperr.Validation("invalid label", apperr.Detail{
				Field: "name", Reason: "name cannot be empty", Code: "required",
			}))
			return
		}
		patch["name"] = name
	}
	if req.Color != nil {
		patch["color"] = *req.Color
	}
	if len(patch) == 0 {
		writeError(w, r, apperr.Validation("empty patch"))
		return
	}
	updated, err := h.labels.Update(r.Context(), label.ID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Label updated successfully", updated)
}

// DeleteLabel soft-deletes a label.
func (h *LabelHandler) DeleteLabel(w http.ResponseWriter, r *http.Request) {
	label, err := h.labelInProject(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.labels.Remove(r.Context(), label.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Label deleted successfully", nil)
}

// ListTaskLabels returns the labels attached to a task.
func (h *LabelHandler) ListTaskLabels(w http.ResponseWriter, r *http.Request) {
	taskID, err := urlParamID(r, "taskID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	labels, err := h.labels.ListForTask(r.Context(), taskID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if labels == nil {
		labels = []types.Label{}
	}
	writeSuccess(w, r, http.StatusOK, "Label list retrieved successfully", labels)
}

// AttachLabel tags the task with a label. Attaching twice is a no-op.
func (h *LabelHandler) AttachLabel(w http.ResponseWriter, r *http.Request) {
	taskID, err := urlParamID(r, "taskID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	labelID, err := urlParamID(r, "labelID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.labels.Attach(r.Context(), taskID, labelID); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Label attached successfully", nil)
}

// DetachLabel removes a label from the task.
func (h *LabelHandler) DetachLabel(w http.ResponseWriter, r *http.Request) {
	taskID, err := urlParamID(r, "taskID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	labelID, err := urlParamID(r, "labelID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.labels.Detach(r.Context(), taskID, labelID); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Label detached successfully", nil)
}

// labelInProject loads the addressed label and hides labels of other
// projects behind a 404.
func (h *LabelHandler) labelInProject(r *http.Request) (types.Label, error) {
	projectID, err := urlParamID(r, "projectID")
	if err != nil {
		return types.Label{}, err
	}
	labelID, err := urlParamID(r, "labelID")
	if err != nil {
		return types.Label{}, err
	}
	label, err := h.labels.GetOrFail(r.Context(), labelID)
	if err != nil {
		return types.Label{}, err
	}
	if label.ProjectID != projectID {
		return types.Label{}, apperr.NotFound("Label with ID %d not found", labelID)
	}
	return label, nil
}
