package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dubforge.json")
	s, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func testProject(name string) *Project {
	return &Project{
		Name:           name,
		SourceVideoURL: "https://youtu.be/dQw4w9WgXcQ",
		Settings: ProjectSettings{
			SourceLang: "en",
			TargetLang: "es",
			Voice:      "nova",
			Quality:    "720p",
		},
	}
}

func TestJSONStore_ProjectCRUD(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p := testProject("My Dub")
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == "" {
		t.Fatal("CreateProject should assign an ID")
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Name != "My Dub" || got.Settings.TargetLang != "es" {
		t.Errorf("unexpected project: %+v", got)
	}

	got.Name = "Renamed"
	if err := s.UpdateProject(ctx, got); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	got2, _ := s.GetProject(ctx, p.ID)
	if got2.Name != "Renamed" {
		t.Errorf("update not persisted: %+v", got2)
	}
	if !got2.UpdatedAt.After(got2.CreatedAt) && !got2.UpdatedAt.Equal(got2.CreatedAt) {
		t.Error("UpdatedAt should advance")
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := s.GetProject(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProject after delete = %v, want ErrNotFound", err)
	}
}

func TestJSONStore_CreateProjectValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	err := s.CreateProject(ctx, &Project{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty name: got %v, want ErrInvalidInput", err)
	}

	p := testProject("dup")
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	err = s.CreateProject(ctx, &Project{ID: p.ID, Name: "other"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate ID: got %v, want ErrAlreadyExists", err)
	}
}

func TestJSONStore_ListProjectsOrdered(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if err := s.CreateProject(ctx, testProject(name)); err != nil {
			t.Fatalf("CreateProject(%s): %v", name, err)
		}
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 3 {
		t.Fatalf("got %d projects, want 3", len(projects))
	}
	for i := 1; i < len(projects); i++ {
		if projects[i].CreatedAt.Before(projects[i-1].CreatedAt) {
			t.Error("projects should be ordered by creation time")
		}
	}
}

func TestJSONStore_AnnotationCRUD(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p := testProject("annotated")
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	a := &Annotation{
		ProjectID: p.ID,
		Page:      2,
		Kind:      "highlight",
		Rect:      Rect{X: 10, Y: 20, W: 100, H: 14},
		Color:     "#ffcc00",
		Text:      "key finding",
	}
	if err := s.CreateAnnotation(ctx, a); err != nil {
		t.Fatalf("CreateAnnotation: %v", err)
	}
	if a.ID == "" {
		t.Fatal("CreateAnnotation should assign an ID")
	}

	got, err := s.GetAnnotation(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAnnotation: %v", err)
	}
	if got.Kind != "highlight" || got.Rect.W != 100 {
		t.Errorf("unexpected annotation: %+v", got)
	}

	got.Text = "revised"
	if err := s.UpdateAnnotation(ctx, got); err != nil {
		t.Fatalf("UpdateAnnotation: %v", err)
	}

	list, err := s.ListAnnotationsByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListAnnotationsByProject: %v", err)
	}
	if len(list) != 1 || list[0].Text != "revised" {
		t.Errorf("unexpected list: %+v", list)
	}

	if err := s.DeleteAnnotation(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAnnotation: %v", err)
	}
	list, _ = s.ListAnnotationsByProject(ctx, p.ID)
	if len(list) != 0 {
		t.Errorf("annotation should be gone, got %+v", list)
	}
}

func TestJSONStore_AnnotationRequiresProject(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	err := s.CreateAnnotation(ctx, &Annotation{ProjectID: "missing", Kind: "note"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	err = s.CreateAnnotation(ctx, &Annotation{Kind: "note"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}

func TestJSONStore_AnnotationCannotChangeProject(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p1 := testProject("one")
	p2 := testProject("two")
	s.CreateProject(ctx, p1)
	s.CreateProject(ctx, p2)

	a := &Annotation{ProjectID: p1.ID, Kind: "note"}
	if err := s.CreateAnnotation(ctx, a); err != nil {
		t.Fatalf("CreateAnnotation: %v", err)
	}

	moved := *a
	moved.ProjectID = p2.ID
	if err := s.UpdateAnnotation(ctx, &moved); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}

func TestJSONStore_DeleteProjectCascades(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p := testProject("cascade")
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	a := &Annotation{ProjectID: p.ID, Kind: "note"}
	s.CreateAnnotation(ctx, a)
	j := &Job{ProjectID: p.ID, Type: "dub"}
	s.CreateJob(ctx, j)

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	if _, err := s.GetAnnotation(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("annotation should cascade, got %v", err)
	}
	if _, err := s.GetJob(ctx, j.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("job should cascade, got %v", err)
	}
}

func TestJSONStore_JobLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p := testProject("jobs")
	s.CreateProject(ctx, p)

	j := &Job{ProjectID: p.ID, Type: "dub"}
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if j.Status != JobQueued {
		t.Errorf("new job status = %q, want queued", j.Status)
	}
	if j.Terminal() {
		t.Error("queued job must not be terminal")
	}

	j.Status = JobRunning
	j.Progress = 40
	j.Stage = "synthesize"
	if err := s.UpdateJob(ctx, j); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != JobRunning || got.Progress != 40 || got.Stage != "synthesize" {
		t.Errorf("unexpected job: %+v", got)
	}

	jobs, err := s.ListJobsByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListJobsByProject: %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("got %d jobs, want 1", len(jobs))
	}

	j.Status = JobCompleted
	j.Progress = 100
	s.UpdateJob(ctx, j)
	if got, _ := s.GetJob(ctx, j.ID); !got.Terminal() {
		t.Error("completed job should be terminal")
	}
}

func TestJSONStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dubforge.json")
	ctx := context.Background()

	s, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	p := testProject("persistent")
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject after reopen: %v", err)
	}
	if got.Name != "persistent" {
		t.Errorf("unexpected project: %+v", got)
	}
}

func TestJSONStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dubforge.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewJSONStore(path)
	if !errors.Is(err, ErrStorageCorrupt) {
		t.Errorf("got %v, want ErrStorageCorrupt", err)
	}
}

func TestJSONStore_LockBlocksSecondStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dubforge.json")

	s, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	defer s.Close()

	lock := NewFileLock(path)
	if err := lock.Lock(50 * time.Millisecond); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("got %v, want ErrLockTimeout", err)
		lock.Unlock()
	}
}

func TestJSONStore_RecordsAreIsolated(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p := testProject("isolated")
	p.Video = &VideoSnapshot{VideoID: "dQw4w9WgXcQ", Title: "original"}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	// Mutating the pointer passed to Create must not reach the store
	p.Video.Title = "tampered"
	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Video.Title != "original" {
		t.Errorf("create aliased its input: Title = %q", got.Video.Title)
	}

	// Mutating a returned record must not reach the store either
	got.Video.Title = "tampered"
	again, _ := s.GetProject(ctx, p.ID)
	if again.Video.Title != "original" {
		t.Errorf("get aliased the stored record: Title = %q", again.Video.Title)
	}

	job := &Job{ProjectID: p.ID, Type: "dub", Result: map[string]string{"k": "v"}}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	j1, _ := s.GetJob(ctx, job.ID)
	j1.Result["k"] = "tampered"
	j2, _ := s.GetJob(ctx, job.ID)
	if j2.Result["k"] != "v" {
		t.Errorf("GetJob shares its Result map: %v", j2.Result)
	}
}

// A worker updating a job stage-by-stage while a status poller encodes
// it must never observe the same Result map.
func TestJSONStore_ConcurrentJobReadsAndWrites(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p := testProject("polled")
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	job := &Job{ProjectID: p.ID, Type: "dub"}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			j, err := s.GetJob(ctx, job.ID)
			if err != nil {
				t.Errorf("GetJob: %v", err)
				return
			}
			if _, err := json.Marshal(map[string]*Job{"job": j}); err != nil {
				t.Errorf("Marshal: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 100; i++ {
		j, err := s.GetJob(ctx, job.ID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		j.Status = JobRunning
		j.Progress = i
		if j.Result == nil {
			j.Result = make(map[string]string)
		}
		j.Result["stage"] = "synthesize"
		if err := s.UpdateJob(ctx, j); err != nil {
			t.Fatalf("UpdateJob: %v", err)
		}
	}
	<-done
}
