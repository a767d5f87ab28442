package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/types"
)

// TimeEntryHandler provides HTTP handlers for task timers. Routes mount
// under a task, behind the membership guard.
type TimeEntryHandler struct {
	entries *services.TimeEntryService
}

// NewTimeEntryHandler constructs a handler with the provided dependencies.
func NewTimeEntryHandler(entries *services.TimeEntryService) *TimeEntryHandler {
	return &TimeEntryHandler{entries: entries}
}

// Register mounts time entry routes on the given router.
func (h *TimeEntryHandler) Register(r chi.Router) {
	r.Get("/", h.ListEntries)
	r.Post("/start", h.StartTimer)
	r.Post("/stop", h.StopTimer)
}

// TimeEntryView decorates an entry with its elapsed duration in seconds.
type TimeEntryView struct {
	types.TimeEntry
	Running         bool    `json:"running"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func newTimeEntryView(entry types.TimeEntry, now time.Time) TimeEntryView {
	return TimeEntryView{
		TimeEntry:       entry,
		Running:         entry.Running(),
		DurationSeconds: entry.Duration(now).Seconds(),
	}
}

// ListEntries returns the task's time entries, newest first.
func (h *TimeEntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	taskID, err := urlParamID(r, "taskID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.entries.ListForTask(r.Context(), taskID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := time.Now()
	views := make([]TimeEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, newTimeEntryView(entry, now))
	}
	writeSuccess(w, r, http.StatusOK, "Time entry list retrieved successfully", views)
}

// StartTimer opens a timer on the task for the caller.
func (h *TimeEntryHandler) StartTimer(w http.ResponseWriter, r *http.Request) {
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
		Note string `json:"note"`
	}
	// An empty body is fine; the note is optional.
	_ = json.NewDecoder(r.Body).Decode(&req)

	entry, err := h.entries.Start(r.Context(), taskID, principal.ID, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Timer started", newTimeEntryView(entry, time.Now()))
}

// StopTimer closes the caller's running timer on the task.
func (h *TimeEntryHandler) StopTimer(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.entries.Stop(r.Context(), taskID, principal.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Timer stopped", newTimeEntryView(entry, time.Now()))
}
