// Package editor manages dubbing project lifecycle.
package editor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"dubforge/fetch"
	"dubforge/storage"
)

// MetadataFetcher resolves a video URL to its metadata.
type MetadataFetcher interface {
	Fetch(ctx context.Context, rawURL string, opts *fetch.Options) (*fetch.VideoMeta, error)
}

// Service provides project operations.
type Service struct {
	store   storage.Store
	fetcher MetadataFetcher
	logger  *zap.Logger
}

// NewService creates an editor service. fetcher may be nil, in which
// case projects are created without a video snapshot.
func NewService(store storage.Store, fetcher MetadataFetcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, fetcher: fetcher, logger: logger}
}

// CreateRequest describes a new project.
type CreateRequest struct {
	Name           string                  `json:"name"`
	Description    string                  `json:"description"`
	SourceVideoURL string                  `json:"sourceVideoUrl"`
	Settings       storage.ProjectSettings `json:"settings"`
}

// Create validates the source URL, snapshots its metadata, and persists
// the project. An unreachable video is not fatal; the snapshot is simply
// omitted and can be refreshed later. A malformed URL is fatal.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*storage.Project, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("editor: name required: %w", storage.ErrInvalidInput)
	}

	project := &storage.Project{
		Name:           req.Name,
		Description:    req.Description,
		SourceVideoURL: req.SourceVideoURL,
		Settings:       req.Settings,
	}

	if req.SourceVideoURL != "" {
		if _, err := fetch.ParseVideoID(req.SourceVideoURL); err != nil {
			return nil, err
		}
		if snap, err := s.snapshot(ctx, req.SourceVideoURL); err != nil {
			if isPermanentFetchFailure(err) {
				return nil, err
			}
			s.logger.Warn("video snapshot unavailable, creating project without it",
				zap.String("url", req.SourceVideoURL),
				zap.Error(err))
		} else {
			project.Video = snap
		}
	}

	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		zap.String("project_id", project.ID),
		zap.String("name", project.Name))
	return project, nil
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, id string) (*storage.Project, error) {
	return s.store.GetProject(ctx, id)
}

// List returns all projects.
func (s *Service) List(ctx context.Context) ([]*storage.Project, error) {
	return s.store.ListProjects(ctx)
}

// UpdateSettings replaces a project's dubbing settings.
func (s *Service) UpdateSettings(ctx context.Context, id string, settings storage.ProjectSettings) (*storage.Project, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *project
	updated.Settings = settings
	if err := s.store.UpdateProject(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// RefreshVideo re-fetches the project's source video metadata.
func (s *Service) RefreshVideo(ctx context.Context, id string) (*storage.Project, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.SourceVideoURL == "" {
		return nil, fmt.Errorf("editor: project has no source video: %w", storage.ErrInvalidInput)
	}

	snap, err := s.snapshot(ctx, project.SourceVideoURL)
	if err != nil {
		return nil, err
	}

	updated := *project
	updated.Video = snap
	if err := s.store.UpdateProject(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a project and everything belonging to it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", zap.String("project_id", id))
	return nil
}

// snapshot fetches metadata and reduces it to the stored subset.
func (s *Service) snapshot(ctx context.Context, rawURL string) (*storage.VideoSnapshot, error) {
	if s.fetcher == nil {
		return nil, errors.New("editor: no fetcher configured")
	}

	meta, err := s.fetcher.Fetch(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}

	return &storage.VideoSnapshot{
		VideoID:   meta.ID,
		Title:     meta.Title,
		Author:    meta.Author,
		Duration:  int(meta.Duration.Seconds()),
		Thumbnail: meta.Thumbnail,
		FetchedAt: meta.FetchedAt,
	}, nil
}

// isPermanentFetchFailure reports whether the fetch error proves the
// video can never back a project.
func isPermanentFetchFailure(err error) bool {
	return errors.Is(err, fetch.ErrInvalidURL) ||
		errors.Is(err, fetch.ErrVideoNotFound) ||
		errors.Is(err, fetch.ErrVideoUnavailable)
}
