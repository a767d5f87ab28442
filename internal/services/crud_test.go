package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/pagination"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// fakeLabelRepo is an in-memory Repository[types.Label] mirroring the
// generic store's semantics: misses are values, soft-deleted rows are
// invisible to live reads.
type fakeLabelRepo struct {
	items  map[int]types.Label
	nextID int
	// failCreate makes the next Create call fail, for bulk tests.
	failCreate bool
}

func newFakeLabelRepo() *fakeLabelRepo {
	return &fakeLabelRepo{items: map[int]types.Label{}, nextID: 1}
}

func (f *fakeLabelRepo) seed(name string) types.Label {
	label := types.Label{ID: f.nextID, Name: name, CreatedAt: time.Now()}
	f.items[label.ID] = label
	f.nextID++
	return label
}

func (f *fakeLabelRepo) FindByID(_ context.Context, id int) (types.Label, bool, error) {
	label, ok := f.items[id]
	if !ok || label.DeletedAt != nil {
		return types.Label{}, false, nil
	}
	return label, true, nil
}

func (f *fakeLabelRepo) FindByIDAny(_ context.Context, id int) (types.Label, bool, error) {
	label, ok := f.items[id]
	return label, ok, nil
}

func (f *fakeLabelRepo) FindOne(ctx context.Context, where store.Values) (types.Label, bool, error) {
	for _, label := range f.items {
		if label.DeletedAt == nil && (where["name"] == nil || where["name"] == label.Name) {
			return label, true, nil
		}
	}
	return types.Label{}, false, nil
}

func (f *fakeLabelRepo) FindAll(_ context.Context, opts store.ListOptions) ([]types.Label, error) {
	live := f.live()
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

func (f *fakeLabelRepo) Count(_ context.Context, _ store.ListOptions) (int, error) {
	return len(f.live()), nil
}

func (f *fakeLabelRepo) Create(_ context.Context, values store.Values) (types.Label, error) {
	if f.failCreate {
		return types.Label{}, errors.New("pq: unique violation")
	}
	name, _ := values["name"].(string)
	return f.seed(name), nil
}

func (f *fakeLabelRepo) Update(_ context.Context, id int, patch store.Values) (types.Label, bool, error) {
	label, ok := f.items[id]
	if !ok || label.DeletedAt != nil {
		return types.Label{}, false, nil
	}
	if name, ok := patch["name"].(string); ok {
		label.Name = name
	}
	f.items[id] = label
	return label, true, nil
}

func (f *fakeLabelRepo) SoftDelete(_ context.Context, id int) (bool, error) {
	label, ok := f.items[id]
	if !ok || label.DeletedAt != nil {
		return false, nil
	}
	now := time.Now()
	label.DeletedAt = &now
	f.items[id] = label
	return true, nil
}

func (f *fakeLabelRepo) Restore(_ context.Context, id int) (bool, error) {
	label, ok := f.items[id]
	if !ok || label.DeletedAt == nil {
		return false, nil
	}
	label.DeletedAt = nil
	f.items[id] = label
	return true, nil
}

func (f *fakeLabelRepo) Delete(_ context.Context, id int) (bool, error) {
	if _, ok := f.items[id]; !ok {
		return false, nil
	}
	delete(f.items, id)
	return true, nil
}

func (f *fakeLabelRepo) live() []types.Label {
	out := make([]types.Label, 0, len(f.items))
	for _, label := range f.items {
		if label.DeletedAt == nil {
			out = append(out, label)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func newLabelService(repo *fakeLabelRepo) *CRUDService[types.Label] {
	return NewCRUDService[types.Label]("Label", repo)
}

func TestGetOrFailMessage(t *testing.T) {
	svc := newLabelService(newFakeLabelRepo())

	_, err := svc.GetOrFail(context.Background(), 42)
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if err.Error() != "Label with ID 42 not found" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestUpdateAbsentEntityFails(t *testing.T) {
	svc := newLabelService(newFakeLabelRepo())

	_, err := svc.Update(context.Background(), 7, store.Values{"name": "x"})
	if !apperr.IsNotFound(err) {
		t.Fatalf("updating an absent entity must fail with NotFound, got %v", err)
	}
}

func TestSoftDeletedEntityIsInvisible(t *testing.T) {
	repo := newFakeLabelRepo()
	svc := newLabelService(repo)
	label := repo.seed("bug")

	if err := svc.Remove(context.Background(), label.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	// Soft-deleted rows are invisible to every generic read path.
	if _, err := svc.GetOrFail(context.Background(), label.ID); !apperr.IsNotFound(err) {
		t.Fatalf("soft-deleted entity still visible: %v", err)
	}
	if _, err := svc.Update(context.Background(), label.ID, store.Values{"name": "x"}); !apperr.IsNotFound(err) {
		t.Fatalf("soft-deleted entity still updatable: %v", err)
	}
	// Removing it again is a not-found, not a second delete.
	if err := svc.Remove(context.Background(), label.ID); !apperr.IsNotFound(err) {
		t.Fatalf("double remove should fail with NotFound, got %v", err)
	}
}

func TestRestore(t *testing.T) {
	repo := newFakeLabelRepo()
	svc := newLabelService(repo)
	label := repo.seed("bug")

	if err := svc.Remove(context.Background(), label.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	restored, err := svc.Restore(context.Background(), label.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.DeletedAt != nil {
		t.Fatal("restored entity still carries deleted_at")
	}
	if _, err := svc.GetOrFail(context.Background(), label.ID); err != nil {
		t.Fatalf("restored entity should be visible again: %v", err)
	}

	// Restoring a live entity is a no-op, not an error.
	if _, err := svc.Restore(context.Background(), label.ID); err != nil {
		t.Fatalf("restoring a live entity should be a no-op: %v", err)
	}
}

func TestHardDeletePurgesTombstones(t *testing.T) {
	repo := newFakeLabelRepo()
	svc := newLabelService(repo)
	label := repo.seed("bug")

	if err := svc.Remove(context.Background(), label.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// A soft-deleted row can still be permanently purged.
	if err := svc.Delete(context.Background(), label.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := repo.FindByIDAny(context.Background(), label.ID); found {
		t.Fatal("hard-deleted entity still present")
	}
	if err := svc.Delete(context.Background(), label.ID); !apperr.IsNotFound(err) {
		t.Fatalf("deleting an absent entity should fail with NotFound, got %v", err)
	}
}

func TestBulkRemoveStopsAtFirstFailure(t *testing.T) {
	repo := newFakeLabelRepo()
	svc := newLabelService(repo)
	first := repo.seed("a")
	third := repo.seed("c")

	removed, err := svc.BulkRemove(context.Background(), []int{first.ID, 999, third.ID})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFound from the missing id, got %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	// The first delete stays committed, the third is untouched.
	if _, found, _ := repo.FindByID(context.Background(), first.ID); found {
		t.Fatal("first entity should be soft-deleted")
	}
	if _, found, _ := repo.FindByID(context.Background(), third.ID); !found {
		t.Fatal("third entity should be untouched")
	}
}

func TestBulkCreatePartialCommit(t *testing.T) {
	repo := newFakeLabelRepo()
	svc := newLabelService(repo)

	created, err := svc.BulkCreate(context.Background(), []store.Values{
		{"name": "a"},
		{"name": "b"},
	})
	if err != nil {
		t.Fatalf("BulkCreate: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created %d, want 2", len(created))
	}

	repo.failCreate = true
	created, err = svc.BulkCreate(context.Background(), []store.Values{{"name": "c"}})
	if err == nil {
		t.Fatal("expected create failure to propagate")
	}
	if len(created) != 0 {
		t.Fatalf("failed batch reported %d created", len(created))
	}
	// The entities from the earlier batch are still there: no rollback
	// spans batches or items.
	if got, _ := svc.Count(context.Background(), nil); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
}

func TestListPageMeta(t *testing.T) {
	repo := newFakeLabelRepo()
	svc := newLabelService(repo)
	for i := 0; i < 12; i++ {
		repo.seed("l")
	}

	items, meta, err := svc.ListPage(context.Background(), nil, pagination.Request{
		Page: 2, Limit: 5, SortBy: "created_at", SortOrder: "DESC",
	})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("items = %d, want 5", len(items))
	}
	want := pagination.Meta{Page: 2, Limit: 5, Total: 12, TotalPages: 3, HasNextPage: true, HasPreviousPage: true}
	if meta != want {
		t.Fatalf("meta = %+v, want %+v", meta, want)
	}
}
