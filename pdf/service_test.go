package pdf

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dubforge/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Project) {
	t.Helper()
	store, err := storage.NewJSONStore(filepath.Join(t.TempDir(), "dubforge.json"))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	p := &storage.Project{Name: "doc review"}
	if err := store.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return NewService(store), p
}

func TestService_CreateAndList(t *testing.T) {
	svc, p := newTestService(t)
	ctx := context.Background()

	ann, err := svc.Create(ctx, CreateRequest{
		ProjectID: p.ID,
		Page:      1,
		Kind:      "highlight",
		Rect:      storage.Rect{X: 5, Y: 10, W: 50, H: 12},
		Color:     "#00ff00",
		Text:      "important",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ann.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	list, err := svc.List(ctx, p.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != ann.ID {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, p := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateRequest{Kind: "note"}); !errors.Is(err, ErrProjectRequired) {
		t.Errorf("missing project: got %v", err)
	}
	if _, err := svc.Create(ctx, CreateRequest{ProjectID: p.ID}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("missing kind: got %v", err)
	}
	if _, err := svc.Create(ctx, CreateRequest{ProjectID: p.ID, Kind: "note", Page: -1}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("negative page: got %v", err)
	}
	if _, err := svc.Create(ctx, CreateRequest{ProjectID: "missing", Kind: "note"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown project: got %v", err)
	}
}

func TestService_PartialUpdate(t *testing.T) {
	svc, p := newTestService(t)
	ctx := context.Background()

	ann, err := svc.Create(ctx, CreateRequest{
		ProjectID: p.ID, Page: 3, Kind: "note", Color: "#ffcc00", Text: "draft",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newText := "final"
	updated, err := svc.Update(ctx, ann.ID, UpdateRequest{ProjectID: p.ID, Text: &newText})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.Text != "final" {
		t.Errorf("Text = %q", updated.Text)
	}
	// Untouched fields survive
	if updated.Page != 3 || updated.Kind != "note" || updated.Color != "#ffcc00" {
		t.Errorf("partial update clobbered fields: %+v", updated)
	}
}

func TestService_UpdateRequiresProject(t *testing.T) {
	svc, p := newTestService(t)
	ctx := context.Background()

	ann, _ := svc.Create(ctx, CreateRequest{ProjectID: p.ID, Kind: "note"})

	text := "x"
	_, err := svc.Update(ctx, ann.ID, UpdateRequest{Text: &text})
	if !errors.Is(err, ErrProjectRequired) {
		t.Errorf("got %v, want ErrProjectRequired", err)
	}
}

func TestService_OwnershipHidesForeignAnnotations(t *testing.T) {
	svc, p := newTestService(t)
	ctx := context.Background()

	other := &storage.Project{Name: "other"}
	store := storageOf(t, svc)
	if err := store.CreateProject(ctx, other); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	ann, _ := svc.Create(ctx, CreateRequest{ProjectID: p.ID, Kind: "note"})

	if _, err := svc.Get(ctx, other.ID, ann.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get with wrong project: got %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, other.ID, ann.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete with wrong project: got %v, want ErrNotFound", err)
	}

	// Still there for the real owner
	if _, err := svc.Get(ctx, p.ID, ann.ID); err != nil {
		t.Errorf("Get with owning project: %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc, p := newTestService(t)
	ctx := context.Background()

	ann, _ := svc.Create(ctx, CreateRequest{ProjectID: p.ID, Kind: "rect"})

	if err := svc.Delete(ctx, p.ID, ann.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, p.ID, ann.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get after delete: got %v", err)
	}
	if err := svc.Delete(ctx, p.ID, ann.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("double delete: got %v", err)
	}
}

func storageOf(t *testing.T, svc *Service) storage.Store {
	t.Helper()
	return svc.store
}
