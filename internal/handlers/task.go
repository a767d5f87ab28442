package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/pagination"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// TaskHandler provides HTTP handlers for tasks. Routes mount under a
// project, behind the membership guard.
type TaskHandler struct {
	tasks *services.TaskService
}

// NewTaskHandler constructs a handler with the provided dependencies.
func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Register mounts task routes plus any nested per-task routers.
func (h *TaskHandler) Register(r chi.Router, nested ...func(chi.Router)) {
	r.Post("/", h.CreateTask)
	r.Get("/", h.ListTasks)
	r.Route("/{taskID}", func(r chi.Router) {
		r.Get("/", h.GetTask)
		r.Patch("/", h.UpdateTask)
		r.Delete("/", h.DeleteTask)
		r.Post("/move", h.MoveTask)
		r.Post("/assign", h.AssignTask)

		for _, mount := range nested {
			mount(r)
		}
	})
}

type TaskCreateRequest struct {
	ColumnID    int        `json:"column_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	AssigneeID  *int       `json:"assignee_id"`
	DueAt       *time.Time `json:"due_at"`
}

// CreateTask creates a task at the tail of the requested column.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized"))
		return
	}
	var req TaskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	if req.ColumnID < 1 {
		writeError(w, r, apperr.Validation("invalid task", apperr.Detail{
			Field: "column_id", Reason: "a valid column_id is required", Code: "required",
		}))
		return
	}
	task, err := h.tasks.CreateInColumn(r.Context(), services.NewTaskInput{
		ProjectID:   projectID,
		ColumnID:    req.ColumnID,
		CreatorID:   principal.ID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueAt:       req.DueAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Task created successfully", task)
}

// ListTasks pages through the project's tasks. column_id, assignee_id
// and priority narrow the filter.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	where := store.Values{"project_id": projectID}
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("column_id")); raw != "" {
		columnID, err := strconv.Atoi(raw)
		if err != nil || columnID < 1 {
			writeError(w, r, apperr.Validation("invalid filter", apperr.Detail{
				Field: "column_id", Reason: "must be a positive integer", Code: "invalid_id",
			}))
			return
		}
		where["column_id"] = columnID
	}
	if raw := strings.TrimSpace(query.Get("assignee_id")); raw != "" {
		assigneeID, err := strconv.Atoi(raw)
		if err != nil || assigneeID < 1 {
			writeError(w, r, apperr.Validation("invalid filter", apperr.Detail{
				Field: "assignee_id", Reason: "must be a positive integer", Code: "invalid_id",
			}))
			return
		}
		where["assignee_id"] = assigneeID
	}
	if priority := strings.TrimSpace(query.Get("priority")); priority != "" {
		where["priority"] = priority
	}

	page := pagination.Parse(query, []string{"created_at", "due_at", "priority", "position", "title"})
	tasks, meta, err := h.tasks.ListPage(r.Context(), where, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []types.Task{}
	}
	writeSuccess(w, r, http.StatusOK, "Task list retrieved successfully",
		ListPayload[types.Task]{Items: tasks, Meta: meta})
}

// GetTask returns one task.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskInProject(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Task retrieved successfully", task)
}

// UpdateTask patches a task's descriptive fields. Board placement only
// changes through the move endpoint.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskInProject(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Priority    *string    `json:"priority"`
		DueAt       *time.Time `json:"due_at"`
		ClearDueAt  bool       `json:"clear_due_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	patch := store.Values{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, r, apperr.Validation("invalid task", apperr.Detail{
				Field: "title", Reason: "title cannot be empty", Code: "required",
			}))
			return
		}
		patch["title"] = title
	}
	if req.Description != nil {
		patch["description"] = *req.Description
	}
	if req.Priority != nil {
		switch *req.Priority {
		case types.PriorityLow, types.PriorityMedium, types.PriorityHigh:
			patch["priority"] = *req.Priority
		default:
			writeError(w, r, apperr.Validation("invalid task", apperr.Detail{
				Field: "priority", Reason: "priority must be low, medium or high", Code: "enum",
			}))
			return
		}
	}
	if req.DueAt != nil {
		patch["due_at"] = *req.DueAt
	} else if req.ClearDueAt {
		patch["due_at"] = nil
	}
	if len(patch) == 0 {
		writeError(w, r, apperr.Validation("empty patch"))
		return
	}
	updated, err := h.tasks.Update(r.Context(), task.ID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Task updated successfully", updated)
}

// DeleteTask soft-deletes a task and compacts its column.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskInProject(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tasks.Remove(r.Context(), task.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Task deleted successfully", nil)
}

// MoveTask relocates a task on the board.
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskInProject(r)
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
		ColumnID int `json:"column_id"`
		Position int `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ColumnID < 1 || req.Position < 0 {
		writeError(w, r, apperr.Validation("invalid move", apperr.Detail{
			Reason: "column_id and a non-negative position are required", Code: "required",
		}))
		return
	}
	moved, err := h.tasks.Move(r.Context(), principal.ID, task.ID, req.ColumnID, req.Position)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Task moved successfully", moved)
}

// AssignTask sets or clears the task's assignee.
func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskInProject(r)
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
		AssigneeID *int `json:"assignee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	updated, err := h.tasks.Assign(r.Context(), principal.ID, task.ID, req.AssigneeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Task assignee updated", updated)
}

// taskInProject loads the addressed task and hides tasks of other
// projects behind a 404.
func (h *TaskHandler) taskInProject(r *http.Request) (types.Task, error) {
	projectID, err := urlParamID(r, "projectID")
	if err != nil {
		return types.Task{}, err
	}
	taskID, err := urlParamID(r, "taskID")
	if err != nil {
		return types.Task{}, err
	}
	task, err := h.tasks.GetOrFail(r.Context(), taskID)
	if err != nil {
		return types.Task{}, err
	}
	if task.ProjectID != projectID {
		return types.Task{}, apperr.NotFound("Task with ID %d not found", taskID)
	}
	return task, nil
}
