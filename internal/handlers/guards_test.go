package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/types"
)

type fakeProjects map[int]types.Project

func (f fakeProjects) GetOrFail(_ context.Context, id int) (types.Project, error) {
	project, ok := f[id]
	if !ok {
		return types.Project{}, apperr.NotFound("Project with ID %d not found", id)
	}
	return project, nil
}

type fakeMembers struct {
	accepted map[int][]int // projectID -> accepted user IDs
	invited  map[int][]int // projectID -> invited-only user IDs
}

func (f fakeMembers) FindAccepted(_ context.Context, projectID, userID int) (types.ProjectMember, bool, error) {
	for _, id := range f.accepted[projectID] {
		if id == userID {
			return types.ProjectMember{ProjectID: projectID, UserID: userID, Status: types.MemberAccepted}, true, nil
		}
	}
	return types.ProjectMember{}, false, nil
}

func (f fakeMembers) FindMembership(_ context.Context, projectID, userID int) (types.ProjectMember, bool, error) {
	if m, found, _ := f.FindAccepted(nil, projectID, userID); found {
		return m, true, nil
	}
	for _, id := range f.invited[projectID] {
		if id == userID {
			return types.ProjectMember{ProjectID: projectID, UserID: userID, Status: types.MemberInvited}, true, nil
		}
	}
	return types.ProjectMember{}, false, nil
}

func guardRouter(guard *ProjectGuard, wrap func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.With(wrap).Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}

func asPrincipal(req *http.Request, p Principal) *http.Request {
	return req.WithContext(withPrincipal(req.Context(), p))
}

func TestProjectGuardMissingProjectBeforeAuthorization(t *testing.T) {
	guard := NewProjectGuard(fakeProjects{}, fakeMembers{})
	router := guardRouter(guard, guard.RequireMember)

	// No principal at all: existence is still checked first, so the
	// response is 404 rather than 401.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/9", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing project without principal: status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/projects/9", nil), Principal{ID: 3, Role: types.RoleUser})
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing project with principal: status = %d, want 404", rec.Code)
	}
}

func TestProjectGuardUnauthenticated(t *testing.T) {
	guard := NewProjectGuard(fakeProjects{1: {ID: 1, OwnerID: 2}}, fakeMembers{})
	router := guardRouter(guard, guard.RequireMember)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/1", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProjectGuardRequireMember(t *testing.T) {
	projects := fakeProjects{1: {ID: 1, OwnerID: 2}}
	members := fakeMembers{accepted: map[int][]int{1: {2, 3}}, invited: map[int][]int{1: {4}}}
	guard := NewProjectGuard(projects, members)
	router := guardRouter(guard, guard.RequireMember)

	cases := []struct {
		name      string
		principal Principal
		want      int
	}{
		{"accepted member", Principal{ID: 3, Role: types.RoleUser}, http.StatusNoContent},
		{"invited but not accepted", Principal{ID: 4, Role: types.RoleUser}, http.StatusForbidden},
		{"outsider", Principal{ID: 9, Role: types.RoleUser}, http.StatusForbidden},
		{"admin bypass", Principal{ID: 9, Role: types.RoleAdmin}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := asPrincipal(httptest.NewRequest(http.MethodGet, "/projects/1", nil), tc.principal)
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestProjectGuardAttachesMembership(t *testing.T) {
	projects := fakeProjects{1: {ID: 1, OwnerID: 2}}
	members := fakeMembers{accepted: map[int][]int{1: {3}}}
	guard := NewProjectGuard(projects, members)

	var got types.ProjectMember
	var found bool
	r := chi.NewRouter()
	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.With(guard.RequireMember).Get("/", func(w http.ResponseWriter, r *http.Request) {
			got, found = MembershipFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
	})

	rec := httptest.NewRecorder()
	req := asPrincipal(httptest.NewRequest(http.MethodGet, "/projects/1", nil), Principal{ID: 3, Role: types.RoleUser})
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if !found || got.UserID != 3 || got.ProjectID != 1 {
		t.Errorf("membership in context = %+v found=%v", got, found)
	}
}

func TestProjectGuardRequireInvitee(t *testing.T) {
	projects := fakeProjects{1: {ID: 1, OwnerID: 2}}
	members := fakeMembers{invited: map[int][]int{1: {4}}}
	guard := NewProjectGuard(projects, members)
	router := guardRouter(guard, guard.RequireInvitee)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodGet, "/projects/1", nil), Principal{ID: 4, Role: types.RoleUser}))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("invitee: status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodGet, "/projects/1", nil), Principal{ID: 5, Role: types.RoleUser}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-invitee: status = %d, want 403", rec.Code)
	}
}

func TestProjectGuardRequireOwner(t *testing.T) {
	projects := fakeProjects{1: {ID: 1, OwnerID: 2}}
	guard := NewProjectGuard(projects, fakeMembers{})
	router := guardRouter(guard, guard.RequireOwner)

	cases := []struct {
		name      string
		principal Principal
		want      int
	}{
		{"owner", Principal{ID: 2, Role: types.RoleUser}, http.StatusNoContent},
		{"member but not owner", Principal{ID: 3, Role: types.RoleUser}, http.StatusForbidden},
		{"admin bypass", Principal{ID: 9, Role: types.RoleAdmin}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodGet, "/projects/1", nil), tc.principal))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestProjectGuardInvalidParam(t *testing.T) {
	guard := NewProjectGuard(fakeProjects{}, fakeMembers{})
	router := guardRouter(guard, guard.RequireMember)

	// An unparseable id is indistinguishable from a missing project.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/abc", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	r := chi.NewRouter()
	r.With(RequireRoles(types.RoleAdmin)).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no principal: status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodGet, "/admin", nil), Principal{ID: 1, Role: types.RoleUser}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong role: status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodGet, "/admin", nil), Principal{ID: 1, Role: types.RoleAdmin}))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin: status = %d, want 204", rec.Code)
	}
}

func TestRequireResourceOwner(t *testing.T) {
	load := func(_ context.Context, id int) ([]int, error) {
		if id != 5 {
			return nil, apperr.NotFound("Comment with ID %d not found", id)
		}
		return []int{7}, nil
	}

	r := chi.NewRouter()
	r.Route("/comments/{commentID}", func(r chi.Router) {
		r.With(RequireResourceOwner("commentID", load)).Delete("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	// Missing resource 404s before the ownership check, even for a
	// caller who could never own it.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodDelete, "/comments/2", nil), Principal{ID: 1, Role: types.RoleUser}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing resource: status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodDelete, "/comments/5", nil), Principal{ID: 7, Role: types.RoleUser}))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("owner: status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodDelete, "/comments/5", nil), Principal{ID: 8, Role: types.RoleUser}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner: status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodDelete, "/comments/5", nil), Principal{ID: 8, Role: types.RoleAdmin}))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin: status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodDelete, "/comments/abc", nil), Principal{ID: 7, Role: types.RoleUser}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unparseable id: status = %d, want 404", rec.Code)
	}
}
