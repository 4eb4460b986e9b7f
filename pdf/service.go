// Package pdf manages PDF annotations layered over project storage.
package pdf

import (
	"context"
	"errors"
	"fmt"

	"dubforge/storage"
)

// ErrProjectRequired indicates a request arrived without a project ID.
var ErrProjectRequired = errors.New("pdf: project id required")

// Service provides annotation operations scoped to a project.
type Service struct {
	store storage.Store
}

// NewService creates an annotation service on the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// CreateRequest describes a new annotation.
type CreateRequest struct {
	ProjectID string       `json:"projectId"`
	Page      int          `json:"page"`
	Kind      string       `json:"kind"`
	Rect      storage.Rect `json:"rect"`
	Color     string       `json:"color"`
	Text      string       `json:"text"`
}

// UpdateRequest carries a partial annotation update. Nil fields are
// left unchanged.
type UpdateRequest struct {
	ProjectID string        `json:"projectId"`
	Page      *int          `json:"page,omitempty"`
	Kind      *string       `json:"kind,omitempty"`
	Rect      *storage.Rect `json:"rect,omitempty"`
	Color     *string       `json:"color,omitempty"`
	Text      *string       `json:"text,omitempty"`
}

// Create validates and persists a new annotation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*storage.Annotation, error) {
	if req.ProjectID == "" {
		return nil, ErrProjectRequired
	}
	if req.Kind == "" {
		return nil, fmt.Errorf("pdf: kind required: %w", storage.ErrInvalidInput)
	}
	if req.Page < 0 {
		return nil, fmt.Errorf("pdf: negative page: %w", storage.ErrInvalidInput)
	}

	ann := &storage.Annotation{
		ProjectID: req.ProjectID,
		Page:      req.Page,
		Kind:      req.Kind,
		Rect:      req.Rect,
		Color:     req.Color,
		Text:      req.Text,
	}
	if err := s.store.CreateAnnotation(ctx, ann); err != nil {
		return nil, err
	}
	return ann, nil
}

// Get returns one annotation, verifying it belongs to the project.
func (s *Service) Get(ctx context.Context, projectID, id string) (*storage.Annotation, error) {
	if projectID == "" {
		return nil, ErrProjectRequired
	}
	ann, err := s.store.GetAnnotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if ann.ProjectID != projectID {
		// Foreign annotations are invisible, not forbidden
		return nil, &storage.StorageError{Op: "read", Entity: "annotation", ID: id, Err: storage.ErrNotFound}
	}
	return ann, nil
}

// List returns all annotations for a project.
func (s *Service) List(ctx context.Context, projectID string) ([]*storage.Annotation, error) {
	if projectID == "" {
		return nil, ErrProjectRequired
	}
	return s.store.ListAnnotationsByProject(ctx, projectID)
}

// Update applies a partial update to an annotation owned by the project.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*storage.Annotation, error) {
	ann, err := s.Get(ctx, req.ProjectID, id)
	if err != nil {
		return nil, err
	}

	updated := *ann
	if req.Page != nil {
		if *req.Page < 0 {
			return nil, fmt.Errorf("pdf: negative page: %w", storage.ErrInvalidInput)
		}
		updated.Page = *req.Page
	}
	if req.Kind != nil {
		updated.Kind = *req.Kind
	}
	if req.Rect != nil {
		updated.Rect = *req.Rect
	}
	if req.Color != nil {
		updated.Color = *req.Color
	}
	if req.Text != nil {
		updated.Text = *req.Text
	}

	if err := s.store.UpdateAnnotation(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an annotation owned by the project.
func (s *Service) Delete(ctx context.Context, projectID, id string) error {
	if _, err := s.Get(ctx, projectID, id); err != nil {
		return err
	}
	return s.store.DeleteAnnotation(ctx, id)
}
