package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// memLabelRepo is an in-memory services.Repository[types.Label] used to
// exercise the generic resource controller without a database. It
// records the last list options it saw so tests can assert what the
// HTTP layer handed down.
type memLabelRepo struct {
	items    map[int]types.Label
	nextID   int
	lastOpts store.ListOptions
}

func newMemLabelRepo() *memLabelRepo {
	return &memLabelRepo{items: map[int]types.Label{}, nextID: 1}
}

func (m *memLabelRepo) seed(name string) types.Label {
	label := types.Label{ID: m.nextID, Name: name, CreatedAt: time.Now()}
	m.items[label.ID] = label
	m.nextID++
	return label
}

func (m *memLabelRepo) FindByID(_ context.Context, id int) (types.Label, bool, error) {
	label, ok := m.items[id]
	if !ok || label.DeletedAt != nil {
		return types.Label{}, false, nil
	}
	return label, true, nil
}

func (m *memLabelRepo) FindByIDAny(_ context.Context, id int) (types.Label, bool, error) {
	label, ok := m.items[id]
	return label, ok, nil
}

func (m *memLabelRepo) FindOne(_ context.Context, _ store.Values) (types.Label, bool, error) {
	return types.Label{}, false, nil
}

func (m *memLabelRepo) FindAll(_ context.Context, opts store.ListOptions) ([]types.Label, error) {
	m.lastOpts = opts
	live := m.live()
	offset := opts.Offset
	if offset > len(live) {
		offset = len(live)
	}
	end := len(live)
	if opts.Limit > 0 && offset+opts.Limit < end {
		end = offset + opts.Limit
	}
	return live[offset:end], nil
}

func (m *memLabelRepo) Count(_ context.Context, _ store.ListOptions) (int, error) {
	return len(m.live()), nil
}

func (m *memLabelRepo) Create(_ context.Context, values store.Values) (types.Label, error) {
	name, _ := values["name"].(string)
	return m.seed(name), nil
}

func (m *memLabelRepo) Update(_ context.Context, id int, patch store.Values) (types.Label, bool, error) {
	label, ok := m.items[id]
	if !ok || label.DeletedAt != nil {
		return types.Label{}, false, nil
	}
	if name, ok := patch["name"].(string); ok {
		label.Name = name
	}
	m.items[id] = label
	return label, true, nil
}

func (m *memLabelRepo) SoftDelete(_ context.Context, id int) (bool, error) {
	label, ok := m.items[id]
	if !ok || label.DeletedAt != nil {
		return false, nil
	}
	now := time.Now()
	label.DeletedAt = &now
	m.items[id] = label
	return true, nil
}

func (m *memLabelRepo) Restore(_ context.Context, id int) (bool, error) {
	label, ok := m.items[id]
	if !ok || label.DeletedAt == nil {
		return false, nil
	}
	label.DeletedAt = nil
	m.items[id] = label
	return true, nil
}

func (m *memLabelRepo) Delete(_ context.Context, id int) (bool, error) {
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func (m *memLabelRepo) live() []types.Label {
	out := make([]types.Label, 0, len(m.items))
	for _, label := range m.items {
		if label.DeletedAt == nil {
			out = append(out, label)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func newLabelResource(repo *memLabelRepo) http.Handler {
	res := &Resource[types.Label]{
		Service:  services.NewCRUDService[types.Label]("Label", repo),
		Sortable: []string{"created_at", "name"},
		FromCreate: func(_ *http.Request, body []byte) (store.Values, error) {
			var in struct {
				Name  string `json:"name"`
				Color string `json:"color"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apperr.Validation("invalid request body")
			}
			if strings.TrimSpace(in.Name) == "" {
				return nil, apperr.Validation("invalid label",
					apperr.Detail{Field: "name", Reason: "name is required", Code: "required"})
			}
			return store.Values{"name": in.Name, "color": in.Color}, nil
		},
		FromPatch: func(_ *http.Request, body []byte) (store.Values, error) {
			var in struct {
				Name *string `json:"name"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, apperr.Validation("invalid request body")
			}
			patch := store.Values{}
			if in.Name != nil {
				patch["name"] = *in.Name
			}
			return patch, nil
		},
		Extensions: Extensions{
			Count:      true,
			Restore:    true,
			BulkCreate: true,
			BulkDelete: true,
			Export:     true,
		},
	}
	return res.Routes()
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	env := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestResourceListPagination(t *testing.T) {
	repo := newMemLabelRepo()
	for i := 0; i < 12; i++ {
		repo.seed("l")
	}
	h := newLabelResource(repo)

	rec, env := doJSON(t, h, http.MethodGet, "/?page=2&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := env["data"].(map[string]any)
	items := data["items"].([]any)
	if len(items) != 5 {
		t.Fatalf("items = %d, want 5", len(items))
	}
	meta := data["meta"].(map[string]any)
	checks := map[string]any{
		"page": float64(2), "limit": float64(5), "total": float64(12),
		"totalPages": float64(3), "hasNextPage": true, "hasPreviousPage": true,
	}
	for key, want := range checks {
		if meta[key] != want {
			t.Errorf("meta.%s = %v, want %v", key, meta[key], want)
		}
	}
}

func TestResourceListClampsAndFiltersInput(t *testing.T) {
	repo := newMemLabelRepo()
	repo.seed("l")
	h := newLabelResource(repo)

	// Disallowed sort field falls back to the default; an oversized
	// limit is clamped before it reaches the repository.
	rec, _ := doJSON(t, h, http.MethodGet, "/?sortBy=password&limit=500", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.lastOpts.SortBy != "created_at" {
		t.Errorf("sortBy = %q, want created_at", repo.lastOpts.SortBy)
	}
	if repo.lastOpts.Limit != 100 {
		t.Errorf("limit = %d, want 100", repo.lastOpts.Limit)
	}
}

func TestResourceGetNotFound(t *testing.T) {
	h := newLabelResource(newMemLabelRepo())

	rec, env := doJSON(t, h, http.MethodGet, "/42", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env["message"] != "Label with ID 42 not found" {
		t.Errorf("message = %q", env["message"])
	}
}

func TestResourceCreate(t *testing.T) {
	h := newLabelResource(newMemLabelRepo())

	rec, env := doJSON(t, h, http.MethodPost, "/", `{"name":"bug","color":"#ff0000"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if env["message"] != "Label created successfully" {
		t.Errorf("message = %q", env["message"])
	}
	data := env["data"].(map[string]any)
	if data["name"] != "bug" {
		t.Errorf("created name = %v", data["name"])
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/", `{"color":"#ff0000"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing name: status = %d, want 400", rec.Code)
	}
}

func TestResourceUpdateEmptyPatch(t *testing.T) {
	repo := newMemLabelRepo()
	label := repo.seed("bug")
	h := newLabelResource(repo)

	rec, env := doJSON(t, h, http.MethodPatch, "/1", `{"unknown":"field"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	details := env["error"].([]any)
	if details[0].(map[string]any)["code"] != "empty_patch" {
		t.Errorf("detail = %v", details[0])
	}

	rec, _ = doJSON(t, h, http.MethodPatch, "/1", `{"name":"feature"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := repo.items[label.ID].Name; got != "feature" {
		t.Errorf("name after patch = %q", got)
	}
}

func TestResourceRestore(t *testing.T) {
	repo := newMemLabelRepo()
	label := repo.seed("bug")
	h := newLabelResource(repo)

	rec, _ := doJSON(t, h, http.MethodDelete, "/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d, want 200", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted label still visible: status = %d", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/1/restore", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("restore: status = %d, want 200", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("restored label not visible: status = %d", rec.Code)
	}
	if repo.items[label.ID].DeletedAt != nil {
		t.Error("restored label still carries deleted_at")
	}
}

func TestResourceCount(t *testing.T) {
	repo := newMemLabelRepo()
	repo.seed("a")
	repo.seed("b")
	h := newLabelResource(repo)

	rec, env := doJSON(t, h, http.MethodGet, "/count", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := env["data"].(map[string]any)
	if data["count"] != float64(2) {
		t.Errorf("count = %v, want 2", data["count"])
	}
}

func TestResourceBulkCreate(t *testing.T) {
	repo := newMemLabelRepo()
	h := newLabelResource(repo)

	rec, env := doJSON(t, h, http.MethodPost, "/bulk",
		`{"items":[{"name":"a"},{"name":"b"},{"name":"c"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	data := env["data"].(map[string]any)
	if data["created"] != float64(3) {
		t.Errorf("created = %v, want 3", data["created"])
	}

	// One bad element rejects the whole batch before anything is
	// written.
	before := len(repo.items)
	rec, _ = doJSON(t, h, http.MethodPost, "/bulk", `{"items":[{"name":"d"},{"color":"#fff"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid element: status = %d, want 400", rec.Code)
	}
	if len(repo.items) != before {
		t.Errorf("invalid batch still wrote rows: %d -> %d", before, len(repo.items))
	}
}

func TestResourceBulkDeleteStopsAtFirstFailure(t *testing.T) {
	repo := newMemLabelRepo()
	first := repo.seed("a")
	third := repo.seed("c")
	h := newLabelResource(repo)

	rec, env := doJSON(t, h, http.MethodDelete, "/bulk",
		`{"ids":[1,999,2]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env["message"] != "Label with ID 999 not found" {
		t.Errorf("message = %q", env["message"])
	}
	// The delete before the failure stays committed, the one after
	// never runs.
	if repo.items[first.ID].DeletedAt == nil {
		t.Error("first label should be soft-deleted")
	}
	if repo.items[third.ID].DeletedAt != nil {
		t.Error("third label should be untouched")
	}
}

func TestResourceExport(t *testing.T) {
	repo := newMemLabelRepo()
	repo.seed("a")
	repo.seed("b")
	h := newLabelResource(repo)

	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="label_export.json"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	var labels []types.Label
	if err := json.Unmarshal(rec.Body.Bytes(), &labels); err != nil {
		t.Fatalf("export is not a JSON array: %v", err)
	}
	if len(labels) != 2 {
		t.Errorf("exported %d labels, want 2", len(labels))
	}
}
