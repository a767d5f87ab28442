package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/pagination"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// ProjectHandler provides HTTP handlers for projects and memberships.
type ProjectHandler struct {
	projects *services.ProjectService
	guard    *ProjectGuard
}

// NewProjectHandler constructs a handler with the provided dependencies.
func NewProjectHandler(projects *services.ProjectService, guard *ProjectGuard) *ProjectHandler {
	return &ProjectHandler{projects: projects, guard: guard}
}

// Register mounts project routes plus any nested per-project routers.
// All routes assume RequireAuth already ran.
func (h *ProjectHandler) Register(r chi.Router, nested ...func(chi.Router)) {
	r.Post("/", h.CreateProject)
	r.Get("/", h.ListProjects)

	r.Route("/{projectID}", func(r chi.Router) {
		r.With(h.guard.RequireMember).Get("/", h.GetProject)
		r.With(h.guard.RequireOwner).Patch("/", h.UpdateProject)
		r.With(h.guard.RequireOwner).Delete("/", h.DeleteProject)

		r.With(h.guard.RequireMember).Get("/members", h.ListMembers)
		r.With(h.guard.RequireOwner).Post("/members", h.InviteMember)
		r.With(h.guard.RequireInvitee).Post("/members/accept", h.AcceptInvite)
		r.With(h.guard.RequireOwner).Delete("/members/{userID}", h.RemoveMember)

		for _, mount := range nested {
			mount(r)
		}
	})
}

type ProjectUpsertRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateProject creates a project owned by the caller.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized"))
		return
	}
	var req ProjectUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	project, err := h.projects.CreateForOwner(r.Context(), principal.ID, req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Project created successfully", project)
}

// ListProjects pages through the caller's projects.
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized("unauthorized"))
		return
	}
	page := pagination.Parse(r.URL.Query(), []string{"created_at", "name"})
	projects, meta, err := h.projects.ListForUser(r.Context(), principal.ID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []types.Project{}
	}
	writeSuccess(w, r, http.StatusOK, "Project list retrieved successfully",
		ListPayload[types.Project]{Items: projects, Meta: meta})
}

// GetProject returns one project.
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	project, err := h.projects.GetOrFail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Project retrieved successfully", project)
}

// UpdateProject patches a project's name or description.
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperr.Validation("invalid request body"))
		return
	}
	patch := store.Values{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, r, apperr.Validation("invalid project", apperr.Detail{
				Field: "name", Reason: "name cannot be empty", Code: "required",
			}))
			return
		}
		patch["name"] = name
	}
	if req.Description != nil {
		patch["description"] = *req.Description
	}
	if len(patch) == 0 {
		writeError(w, r, apperr.Validation("empty patch"))
		return
	}
	project, err := h.projects.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Project updated successfully", project)
}

// DeleteProject soft-deletes a project.
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.projects.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Project deleted successfully", nil)
}

// ListMembers returns the project's memberships.
func (h *ProjectHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	members, err := h.projects.Members(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if members == nil {
		members = []types.ProjectMember{}
	}
	writeSuccess(w, r, http.StatusOK, "Member list retrieved successfully", members)
}

// InviteMember invites a user to the project.
func (h *ProjectHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
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
	var req struct {
		UserID int `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID < 1 {
		writeError(w, r, apperr.Validation("invalid invite", apperr.Detail{
			Field: "user_id", Reason: "a valid user_id is required", Code: "required",
		}))
		return
	}
	member, err := h.projects.Invite(r.Context(), projectID, principal.ID, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Member invited successfully", member)
}

// AcceptInvite accepts the caller's pending invitation.
func (h *ProjectHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
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
	member, err := h.projects.AcceptInvite(r.Context(), projectID, principal.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Invitation accepted", member)
}

// RemoveMember drops a member from the project.
func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	projectID, err := urlParamID(r, "projectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := urlParamID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.projects.RemoveMember(r.Context(), projectID, userID); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Member removed successfully", nil)
}
