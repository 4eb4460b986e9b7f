// Package storage provides abstractions for persisting dubforge data.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists indicates the entity already exists in storage.
	ErrAlreadyExists = errors.New("storage: already exists")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("create", "read", "update", "delete").
	Op string
	// Entity is the entity type ("project", "annotation", "job").
	Entity string
	// ID is the entity ID if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// Store is the main storage interface for all dubforge data operations.
// Implementations must be safe for concurrent use.
type Store interface {
	ProjectStore
	AnnotationStore
	JobStore

	// Close releases any resources held by the store.
	Close() error
}

// ProjectStore handles project CRUD operations.
type ProjectStore interface {
	// CreateProject saves a new project to storage.
	CreateProject(ctx context.Context, project *Project) error
	// GetProject retrieves a project by its ID.
	GetProject(ctx context.Context, id string) (*Project, error)
	// UpdateProject updates an existing project record.
	UpdateProject(ctx context.Context, project *Project) error
	// DeleteProject removes a project and all its annotations and jobs.
	DeleteProject(ctx context.Context, id string) error
	// ListProjects retrieves all projects in storage.
	ListProjects(ctx context.Context) ([]*Project, error)
}

// AnnotationStore handles PDF annotation CRUD operations.
type AnnotationStore interface {
	// CreateAnnotation saves a new annotation to storage.
	CreateAnnotation(ctx context.Context, annotation *Annotation) error
	// GetAnnotation retrieves an annotation by its ID.
	GetAnnotation(ctx context.Context, id string) (*Annotation, error)
	// UpdateAnnotation updates an existing annotation record.
	UpdateAnnotation(ctx context.Context, annotation *Annotation) error
	// DeleteAnnotation removes an annotation from storage.
	DeleteAnnotation(ctx context.Context, id string) error
	// ListAnnotationsByProject retrieves all annotations for a project.
	ListAnnotationsByProject(ctx context.Context, projectID string) ([]*Annotation, error)
}

// JobStore handles automation job operations.
type JobStore interface {
	// CreateJob saves a new job to storage.
	CreateJob(ctx context.Context, job *Job) error
	// GetJob retrieves a job by its ID.
	GetJob(ctx context.Context, id string) (*Job, error)
	// UpdateJob updates an existing job record.
	UpdateJob(ctx context.Context, job *Job) error
	// ListJobsByProject retrieves all jobs for a project.
	ListJobsByProject(ctx context.Context, projectID string) ([]*Job, error)
}
