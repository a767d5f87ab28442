package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/pagination"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/store"
)

const maxBodyBytes = 1 << 20

// Extensions selects the optional routes a Resource mounts beyond the
// five standard CRUD endpoints.
type Extensions struct {
	Count           bool
	Restore         bool
	PermanentDelete bool
	BulkCreate      bool
	BulkDelete      bool
	Search          bool
	Export          bool
}

// SearchFn runs a resource-specific text search within the scope.
type SearchFn[T any] func(ctx context.Context, q string, scope store.Values, page pagination.Request) ([]T, pagination.Meta, error)

// Resource is a generic CRUD controller over one entity type. It mounts
// POST /, GET /, GET /{id}, PATCH /{id} and DELETE /{id}, plus whatever
// Extensions enables. FromCreate and FromPatch translate request bodies
// into column values; everything else is shared plumbing.
type Resource[T any] struct {
	Service  *services.CRUDService[T]
	Sortable []string

	// Scope derives a mandatory filter from the request, typically from
	// a parent route param. Applied to lists, counts, search and export.
	Scope func(r *http.Request) (store.Values, error)

	// FromCreate maps one JSON document to insert values. Bulk create
	// feeds each array element through it.
	FromCreate func(r *http.Request, body []byte) (store.Values, error)
	// FromPatch maps a JSON document to patch values.
	FromPatch func(r *http.Request, body []byte) (store.Values, error)

	Search     SearchFn[T]
	Extensions Extensions
}

// Routes builds the router for this resource.
func (res *Resource[T]) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", res.List)
	if res.FromCreate != nil {
		r.Post("/", res.Create)
	}
	if res.Extensions.Count {
		r.Get("/count", res.Count)
	}
	if res.Extensions.Search && res.Search != nil {
		r.Get("/search", res.RunSearch)
	}
	if res.Extensions.Export {
		r.Get("/export", res.Export)
	}
	if res.Extensions.BulkCreate && res.FromCreate != nil {
		r.Post("/bulk", res.BulkCreate)
	}
	if res.Extensions.BulkDelete {
		r.Delete("/bulk", res.BulkDelete)
	}

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", res.Get)
		if res.FromPatch != nil {
			r.Patch("/", res.Update)
		}
		r.Delete("/", res.Delete)
		if res.Extensions.Restore {
			r.Post("/restore", res.Restore)
		}
		if res.Extensions.PermanentDelete {
			r.Delete("/permanent", res.PermanentDelete)
		}
	})

	return r
}

// List returns one page of the scoped collection.
func (res *Resource[T]) List(w http.ResponseWriter, r *http.Request) {
	scope, err := res.scope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page := pagination.Parse(r.URL.Query(), res.Sortable)
	items, meta, err := res.Service.ListPage(r.Context(), scope, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	writeSuccess(w, r, http.StatusOK, res.message("%s list retrieved successfully"),
		ListPayload[T]{Items: items, Meta: meta})
}

// Get returns a single entity by id.
func (res *Resource[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entity, err := res.Service.GetOrFail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, res.message("%s retrieved successfully"), entity)
}

// Create inserts a new entity from the request body.
func (res *Resource[T]) Create(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	values, err := res.FromCreate(r, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entity, err := res.Service.Create(r.Context(), values)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, res.message("%s created successfully"), entity)
}

// Update patches an existing entity.
func (res *Resource[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := res.FromPatch(r, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(patch) == 0 {
		writeError(w, r, apperr.Validation("empty patch",
			apperr.Detail{Reason: "no recognized fields in request body", Code: "empty_patch"}))
		return
	}
	entity, err := res.Service.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, res.message("%s updated successfully"), entity)
}

// Delete soft-deletes an entity.
func (res *Resource[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := res.Service.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, res.message("%s deleted successfully"), nil)
}

// Count returns the scoped live-row count.
func (res *Resource[T]) Count(w http.ResponseWriter, r *http.Request) {
	scope, err := res.scope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := res.Service.Count(r.Context(), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, res.message("%s count retrieved successfully"),
		map[string]int{"count": count})
}

// Restore brings a soft-deleted entity back.
func (res *Resource[T]) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entity, err := res.Service.Restore(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, res.message("%s restored successfully"), entity)
}

// PermanentDelete removes an entity for good, tombstone or not.
func (res *Resource[T]) PermanentDelete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := res.Service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, res.message("%s permanently deleted"), nil)
}

// BulkCreate inserts each element of the items array in order. A
// failure partway returns the error together with whatever was already
// created; nothing is rolled back.
func (res *Resource[T]) BulkCreate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &req); err != nil || len(req.Items) == 0 {
		writeError(w, r, apperr.Validation("invalid bulk payload",
			apperr.Detail{Field: "items", Reason: "a non-empty items array is required", Code: "required"}))
		return
	}

	valueSets := make([]store.Values, 0, len(req.Items))
	for i, item := range req.Items {
		values, err := res.FromCreate(r, item)
		if err != nil {
			writeError(w, r, apperr.Validation(fmt.Sprintf("invalid item at index %d", i),
				apperr.Detail{Field: "items", Reason: err.Error(), Code: "invalid_item"}))
			return
		}
		valueSets = append(valueSets, values)
	}

	created, err := res.Service.BulkCreate(r.Context(), valueSets)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, res.message("%s bulk create completed"),
		map[string]any{"items": created, "created": len(created)})
}

// BulkDelete soft-deletes the given ids in order, stopping at the first
// failure.
func (res *Resource[T]) BulkDelete(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		IDs []int `json:"ids"`
	}
	if err := json.Unmarshal(body, &req); err != nil || len(req.IDs) == 0 {
		writeError(w, r, apperr.Validation("invalid bulk payload",
			apperr.Detail{Field: "ids", Reason: "a non-empty ids array is required", Code: "required"}))
		return
	}

	removed, err := res.Service.BulkRemove(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, res.message("%s bulk delete completed"),
		map[string]int{"deleted": removed})
}

// RunSearch delegates to the resource's search hook.
func (res *Resource[T]) RunSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, apperr.Validation("missing query",
			apperr.Detail{Field: "q", Reason: "a search term is required", Code: "required"}))
		return
	}
	scope, err := res.scope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page := pagination.Parse(r.URL.Query(), res.Sortable)
	items, meta, err := res.Search(r.Context(), q, scope, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	writeSuccess(w, r, http.StatusOK, res.message("%s search completed"),
		ListPayload[T]{Items: items, Meta: meta})
}

// Export streams the whole scoped collection as a JSON download.
func (res *Resource[T]) Export(w http.ResponseWriter, r *http.Request) {
	scope, err := res.scope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := res.Service.List(r.Context(), store.ListOptions{Where: scope})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	name := strings.ToLower(strings.ReplaceAll(res.Service.EntityName(), " ", "_"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"_export.json"))
	_ = json.NewEncoder(w).Encode(items)
}

func (res *Resource[T]) scope(r *http.Request) (store.Values, error) {
	if res.Scope == nil {
		return nil, nil
	}
	return res.Scope(r)
}

func (res *Resource[T]) message(format string) string {
	return fmt.Sprintf(format, res.Service.EntityName())
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.Validation("unreadable request body")
	}
	return body, nil
}
