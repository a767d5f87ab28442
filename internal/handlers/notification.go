package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/pagination"
	"github.com/taskboard/apiserver/internal/services"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler constructs a handler with the provided dependencies.
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// Register mounts notification routes on the given router. All routes
// assume RequireAuth already ran.
func (h *NotificationHandler) Register(r chi.Router) {
	r.Get("/", h.ListNotifications)
	r.Get("/unread-count", h.UnreadCount)
	r.Post("/read-all", h.MarkAllRead)
	r.Post("/{notificationID}/read", h.MarkRead)
}

// ListNotifications pages the inbox newest-first with an id cursor.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized"))
		return
	}

	query := r.URL.Query()
	limit := pagination.DefaultLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	var before *int
	if raw := strings.TrimSpace(query.Get("before")); raw != "" {
		cursor, err := strconv.Atoi(raw)
		if err != nil || cursor < 1 {
			writeError(w, r, apperr.Validation("invalid cursor", apperr.Detail{
				Field: "before", Reason: "must be a positive integer", Code: "invalid_cursor",
			}))
			return
		}
		before = &cursor
	}

	page, err := h.notifications.ListCursor(r.Context(), principal.ID, limit, before)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Notification list retrieved successfully", page)
}

// UnreadCount returns the caller's unread notification count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized"))
		return
	}
	count, err := h.notifications.CountUnread(r.Context(), principal.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Unread count retrieved successfully",
		map[string]int{"count": count})
}

// MarkRead stamps one notification as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized"))
		return
	}
	id, err := urlParamID(r, "notificationID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.notifications.MarkRead(r.Context(), id, principal.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Notification marked as read", nil)
}

// MarkAllRead stamps the caller's whole inbox as read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized"))
		return
	}
	count, err := h.notifications.MarkAllRead(r.Context(), principal.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "All notifications marked as read",
		map[string]int{"updated": count})
}
