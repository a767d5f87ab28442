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

// ColumnHandler provides HTTP handlers for board columns. Routes mount
// under a project, so every request carries a {projectID} param and has
// passed the membership guard.
type ColumnHandler struct {
	columns *services.ColumnService
}

// NewColumnHandler constructs a handler with the provided dependencies.
func NewColumnHandler(columns *services.ColumnService) *ColumnHandler {
	return &ColumnHandler{columns: columns}
}

// Register mounts column routes on the given router.
func (h *ColumnHandler) Register(r chi.Router) {
	r.Post("/", h.CreateColumn)
	r.Get("/", h.ListColumns)
	r.Put("/reorder", h.ReorderColumns)
	r.Route("/{columnID}", func(r chi.Router) {
		r.Patch("/", h.RenameColumn)
		r.Delete("/", h.DeleteColumn)
	})
}

// CreateColumn appends a column to the project's board.
func (h *ColumnHandler) CreateColumn(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	column, err := h.columns.CreateAtTail(r.Context(), projectID, req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Column created successfully", column)
}

// ListColumns returns the board's columns in position order.
func (h *ColumnHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	columns, err := h.columns.ListForProject(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if columns == nil {
		columns = []types.Column{}
	}
	writeSuccess(w, r, http.StatusOK, "Column list retrieved successfully", columns)
}

// ReorderColumns rewrites the whole board order in one call.
func (h *ColumnHandler) ReorderColumns(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		ColumnIDs []int `json:"column_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ColumnIDs) == 0 {
		writeError(w, r, apperr.Validation("invalid column order", apperr.Detail{
			Field: "column_ids", Reason: "a non-empty column_ids array is required", Code: "required",
		}))
		return
	}
	columns, err := h.columns.Reorder(r.Context(), projectID, req.ColumnIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Columns reordered successfully", columns)
}

// RenameColumn patches a column's title.
func (h *ColumnHandler) RenameColumn(w http.ResponseWriter, r *http.Request) {
	column, err := h.columnInProject(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, r, apperr.Validation("invalid column", apperr.Detail{
			Field: "title", Reason: "title is required", Code: "required",
		}))
		return
	}
	updated, err := h.columns.Update(r.Context(), column.ID, store.Values{"title": req.Title})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Column updated successfully", updated)
}

// DeleteColumn soft-deletes a column and compacts the board order.
func (h *ColumnHandler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	column, err := h.columnInProject(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.columns.Remove(r.Context(), column.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Column deleted successfully", nil)
}

// columnInProject loads the addressed column and hides columns of other
// projects behind a 404.
func (h *ColumnHandler) columnInProject(r *http.Request) (types.Column, error) {
	projectID, err := urlParamID(r, "projectID")
	if err != nil {
		return types.Column{}, err
	}
	columnID, err := urlParamID(r, "columnID")
	if err != nil {
		return types.Column{}, err
	}
	column, err := h.columns.GetOrFail(r.Context(), columnID)
	if err != nil {
		return types.Column{}, err
	}
	if column.ProjectID != projectID {
		return types.Column{}, apperr.NotFound("Column with ID %d not found", columnID)
	}
	return column, nil
}
