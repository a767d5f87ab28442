package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/types"
)

// RequireAuth enforces JWT authentication and injects the principal
// into context.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := requestToken(r)
			if err != nil {
				writeError(w, r, apperr.Unauthorized("unauthorized"))
				return
			}
			principal, err := parseToken(tokenString, secret)
			if err != nil {
				writeError(w, r, apperr.Unauthorized("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRoles allows only principals holding one of the given roles.
// With no roles declared any authenticated principal passes.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := principalFromContext(r.Context())
			if !ok {
				writeError(w, r, apperr.Unauthorized("unauthorized"))
				return
			}
			if len(roles) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, apperr.Forbidden("access denied"))
		})
	}
}

// ProjectLoader resolves a project or fails with NotFound.
type ProjectLoader interface {
	GetOrFail(ctx context.Context, id int) (types.Project, error)
}

// MembershipFinder looks up a user's membership in a project.
type MembershipFinder interface {
	FindMembership(ctx context.Context, projectID, userID int) (types.ProjectMember, bool, error)
	FindAccepted(ctx context.Context, projectID, userID int) (types.ProjectMember, bool, error)
}

// ProjectGuard authorizes access to a project addressed by the
// {projectID} route param. Existence is checked before authorization:
// a request for a missing project gets 404 no matter who asks, so the
// status code never reveals whether a project the caller cannot see
// exists.
type ProjectGuard struct {
	projects ProjectLoader
	members  MembershipFinder
}

func NewProjectGuard(projects ProjectLoader, members MembershipFinder) *ProjectGuard {
	return &ProjectGuard{projects: projects, members: members}
}

// RequireMember admits accepted project members (and admins) and
// attaches the membership to the request context.
func (g *ProjectGuard) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		project, principal, err := g.resolve(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if principal.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}
		member, found, err := g.members.FindAccepted(r.Context(), project.ID, principal.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !found {
			writeError(w, r, apperr.Forbidden("you are not a member of this project"))
			return
		}
		next.ServeHTTP(w, r.WithContext(withMembership(r.Context(), member)))
	})
}

// RequireInvitee admits any user holding a membership row, accepted or
// not. The invite-acceptance endpoint is the only caller.
func (g *ProjectGuard) RequireInvitee(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		project, principal, err := g.resolve(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		member, found, err := g.members.FindMembership(r.Context(), project.ID, principal.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !found {
			writeError(w, r, apperr.Forbidden("you are not invited to this project"))
			return
		}
		next.ServeHTTP(w, r.WithContext(withMembership(r.Context(), member)))
	})
}

// RequireOwner admits only the project owner (and admins).
func (g *ProjectGuard) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		project, principal, err := g.resolve(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !principal.IsAdmin() && project.OwnerID != principal.ID {
			writeError(w, r, apperr.Forbidden("only the project owner may do this"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// resolve parses the route param, loads the project, and reads the
// principal, in that order. An unparseable id is treated the same as a
// project that does not exist.
func (g *ProjectGuard) resolve(r *http.Request) (types.Project, Principal, error) {
	id, err := urlParamID(r, "projectID")
	if err != nil {
		return types.Project{}, Principal{}, apperr.NotFound("Project not found")
	}
	project, err := g.projects.GetOrFail(r.Context(), id)
	if err != nil {
		return types.Project{}, Principal{}, err
	}
	principal, ok := principalFromContext(r.Context())
	if !ok {
		return types.Project{}, Principal{}, apperr.Unauthorized("unauthorized")
	}
	return project, principal, nil
}

// OwnerIDs names the users who own a resource for the purposes of the
// ownership guard.
type OwnerIDs func(ctx context.Context, id int) ([]int, error)

// RequireResourceOwner admits admins and the declared owners of the
// resource addressed by the route param. load surfaces NotFound for
// missing resources, which keeps the 404-before-403 ordering; an
// unparseable id gets the same treatment.
func RequireResourceOwner(param string, load OwnerIDs) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := urlParamID(r, param)
			if err != nil {
				writeError(w, r, apperr.NotFound("resource not found"))
				return
			}
			owners, err := load(r.Context(), id)
			if err != nil {
				writeError(w, r, err)
				return
			}
			principal, ok := principalFromContext(r.Context())
			if !ok {
				writeError(w, r, apperr.Unauthorized("unauthorized"))
				return
			}
			if principal.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}
			for _, owner := range owners {
				if owner == principal.ID {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, apperr.Forbidden("you do not own this resource"))
		})
	}
}

func urlParamID(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, apperr.Validation("invalid "+name, apperr.Detail{
			Field: name, Reason: "must be a positive integer", Code: "invalid_id",
		})
	}
	return id, nil
}
