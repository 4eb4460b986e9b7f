package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	schemaVersion = "1.0"
	lockTimeout   = 5 * time.Second
)

// JSONStore implements Store using a single JSON file.
type JSONStore struct {
	path string
	lock *FileLock
	data *storeData
	mu   sync.RWMutex
}

// storeData is the top-level JSON structure.
type storeData struct {
	Version     string                 `json:"version"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Projects    map[string]*Project    `json:"projects"`
	Annotations map[string]*Annotation `json:"annotations"`
	Jobs        map[string]*Job        `json:"jobs"`
	Indexes     *indexes               `json:"indexes"`
}

// indexes maintains lookup tables for efficient queries.
type indexes struct {
	AnnotationsByProject map[string][]string `json:"annotations_by_project"` // project_id -> []annotation_id
	JobsByProject        map[string][]string `json:"jobs_by_project"`        // project_id -> []job_id
}

// NewJSONStore creates a new JSON file store at the given path.
// If the file exists, it is loaded; otherwise an empty store is created.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path: path,
		lock: NewFileLock(path),
	}

	if err := s.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}

	if err := s.load(); err != nil {
		s.lock.Unlock()
		return nil, err
	}

	return s, nil
}

// load reads the JSON file into memory. Creates empty data if file doesn't exist.
func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = newStoreData()
			// Save immediately to catch permission errors early
			return s.save()
		}
		return &StorageError{Op: "read", Entity: "store", Err: err}
	}

	s.data = &storeData{}
	if err := json.Unmarshal(data, s.data); err != nil {
		return &StorageError{Op: "read", Entity: "store", Err: ErrStorageCorrupt}
	}

	// Ensure maps and indexes exist
	if s.data.Projects == nil {
		s.data.Projects = make(map[string]*Project)
	}
	if s.data.Annotations == nil {
		s.data.Annotations = make(map[string]*Annotation)
	}
	if s.data.Jobs == nil {
		s.data.Jobs = make(map[string]*Job)
	}
	if s.data.Indexes == nil {
		s.data.Indexes = newIndexes()
	}

	return nil
}

// save persists the data to disk atomically.
func (s *JSONStore) save() error {
	s.data.UpdatedAt = time.Now()

	writer, err := NewAtomicWriter(s.path)
	if err != nil {
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		writer.Abort()
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}

	if err := writer.Commit(); err != nil {
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}

	return nil
}

// Close releases resources held by the store.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Unlock()
}

func newStoreData() *storeData {
	return &storeData{
		Version:     schemaVersion,
		UpdatedAt:   time.Now(),
		Projects:    make(map[string]*Project),
		Annotations: make(map[string]*Annotation),
		Jobs:        make(map[string]*Job),
		Indexes:     newIndexes(),
	}
}

func newIndexes() *indexes {
	return &indexes{
		AnnotationsByProject: make(map[string][]string),
		JobsByProject:        make(map[string][]string),
	}
}

// --- ProjectStore implementation ---

func (s *JSONStore) CreateProject(ctx context.Context, project *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if project.Name == "" {
		return &StorageError{Op: "create", Entity: "project", Err: ErrInvalidInput}
	}

	if project.ID == "" {
		project.ID = uuid.NewString()
	}

	if _, exists := s.data.Projects[project.ID]; exists {
		return &StorageError{Op: "create", Entity: "project", ID: project.ID, Err: ErrAlreadyExists}
	}

	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	// Store a copy so later caller mutations cannot reach in
	s.data.Projects[project.ID] = project.clone()

	return s.save()
}

func (s *JSONStore) GetProject(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, exists := s.data.Projects[id]
	if !exists {
		return nil, &StorageError{Op: "read", Entity: "project", ID: id, Err: ErrNotFound}
	}
	return project.clone(), nil
}

func (s *JSONStore) UpdateProject(ctx context.Context, project *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data.Projects[project.ID]
	if !exists {
		return &StorageError{Op: "update", Entity: "project", ID: project.ID, Err: ErrNotFound}
	}

	project.CreatedAt = existing.CreatedAt
	project.UpdatedAt = time.Now()
	s.data.Projects[project.ID] = project.clone()

	return s.save()
}

func (s *JSONStore) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.Projects[id]; !exists {
		return &StorageError{Op: "delete", Entity: "project", ID: id, Err: ErrNotFound}
	}

	delete(s.data.Projects, id)

	// Cascade: annotations and jobs belong to the project
	for _, annID := range s.data.Indexes.AnnotationsByProject[id] {
		delete(s.data.Annotations, annID)
	}
	delete(s.data.Indexes.AnnotationsByProject, id)

	for _, jobID := range s.data.Indexes.JobsByProject[id] {
		delete(s.data.Jobs, jobID)
	}
	delete(s.data.Indexes.JobsByProject, id)

	return s.save()
}

func (s *JSONStore) ListProjects(ctx context.Context) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]*Project, 0, len(s.data.Projects))
	for _, p := range s.data.Projects {
		projects = append(projects, p.clone())
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

// --- AnnotationStore implementation ---

func (s *JSONStore) CreateAnnotation(ctx context.Context, annotation *Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if annotation.ProjectID == "" {
		return &StorageError{Op: "create", Entity: "annotation", Err: ErrInvalidInput}
	}
	if _, exists := s.data.Projects[annotation.ProjectID]; !exists {
		return &StorageError{Op: "create", Entity: "annotation", ID: annotation.ProjectID, Err: ErrNotFound}
	}

	if annotation.ID == "" {
		annotation.ID = uuid.NewString()
	}

	if _, exists := s.data.Annotations[annotation.ID]; exists {
		return &StorageError{Op: "create", Entity: "annotation", ID: annotation.ID, Err: ErrAlreadyExists}
	}

	now := time.Now()
	annotation.CreatedAt = now
	annotation.UpdatedAt = now

	s.data.Annotations[annotation.ID] = annotation.clone()
	s.data.Indexes.AnnotationsByProject[annotation.ProjectID] = append(
		s.data.Indexes.AnnotationsByProject[annotation.ProjectID], annotation.ID)

	return s.save()
}

func (s *JSONStore) GetAnnotation(ctx context.Context, id string) (*Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	annotation, exists := s.data.Annotations[id]
	if !exists {
		return nil, &StorageError{Op: "read", Entity: "annotation", ID: id, Err: ErrNotFound}
	}
	return annotation.clone(), nil
}

func (s *JSONStore) UpdateAnnotation(ctx context.Context, annotation *Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data.Annotations[annotation.ID]
	if !exists {
		return &StorageError{Op: "update", Entity: "annotation", ID: annotation.ID, Err: ErrNotFound}
	}

	// An annotation never migrates between projects
	if annotation.ProjectID != existing.ProjectID {
		return &StorageError{Op: "update", Entity: "annotation", ID: annotation.ID, Err: ErrInvalidInput}
	}

	annotation.CreatedAt = existing.CreatedAt
	annotation.UpdatedAt = time.Now()
	s.data.Annotations[annotation.ID] = annotation.clone()

	return s.save()
}

func (s *JSONStore) DeleteAnnotation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	annotation, exists := s.data.Annotations[id]
	if !exists {
		return &StorageError{Op: "delete", Entity: "annotation", ID: id, Err: ErrNotFound}
	}

	delete(s.data.Annotations, id)
	s.data.Indexes.AnnotationsByProject[annotation.ProjectID] = removeID(
		s.data.Indexes.AnnotationsByProject[annotation.ProjectID], id)

	return s.save()
}

func (s *JSONStore) ListAnnotationsByProject(ctx context.Context, projectID string) ([]*Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.data.Projects[projectID]; !exists {
		return nil, &StorageError{Op: "read", Entity: "project", ID: projectID, Err: ErrNotFound}
	}

	ids := s.data.Indexes.AnnotationsByProject[projectID]
	annotations := make([]*Annotation, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.data.Annotations[id]; ok {
			annotations = append(annotations, a.clone())
		}
	}
	return annotations, nil
}

// --- JobStore implementation ---

func (s *JSONStore) CreateJob(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ProjectID == "" {
		return &StorageError{Op: "create", Entity: "job", Err: ErrInvalidInput}
	}
	if _, exists := s.data.Projects[job.ProjectID]; !exists {
		return &StorageError{Op: "create", Entity: "job", ID: job.ProjectID, Err: ErrNotFound}
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	if _, exists := s.data.Jobs[job.ID]; exists {
		return &StorageError{Op: "create", Entity: "job", ID: job.ID, Err: ErrAlreadyExists}
	}

	if job.Status == "" {
		job.Status = JobQueued
	}
	job.CreatedAt = time.Now()

	s.data.Jobs[job.ID] = job.clone()
	s.data.Indexes.JobsByProject[job.ProjectID] = append(
		s.data.Indexes.JobsByProject[job.ProjectID], job.ID)

	return s.save()
}

func (s *JSONStore) GetJob(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.data.Jobs[id]
	if !exists {
		return nil, &StorageError{Op: "read", Entity: "job", ID: id, Err: ErrNotFound}
	}
	return job.clone(), nil
}

func (s *JSONStore) UpdateJob(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data.Jobs[job.ID]
	if !exists {
		return &StorageError{Op: "update", Entity: "job", ID: job.ID, Err: ErrNotFound}
	}

	if job.ProjectID != existing.ProjectID {
		return &StorageError{Op: "update", Entity: "job", ID: job.ID, Err: ErrInvalidInput}
	}

	job.CreatedAt = existing.CreatedAt
	s.data.Jobs[job.ID] = job.clone()

	return s.save()
}

func (s *JSONStore) ListJobsByProject(ctx context.Context, projectID string) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.data.Indexes.JobsByProject[projectID]
	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		if j, ok := s.data.Jobs[id]; ok {
			jobs = append(jobs, j.clone())
		}
	}
	return jobs, nil
}

// removeID drops one ID from a slice, preserving order.
func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
