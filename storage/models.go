package storage

import "time"

// Project represents one dubbing project: a source video plus the
// editing state built on top of it.
type Project struct {
	// ID is the internal unique identifier (UUID).
	ID string `json:"id"`
	// Name is the display name of the project.
	Name string `json:"name"`
	// Description is an optional free-form description.
	Description string `json:"description,omitempty"`
	// SourceVideoURL is the URL the project was created from.
	SourceVideoURL string `json:"source_video_url,omitempty"`
	// Settings holds the dubbing configuration for this project.
	Settings ProjectSettings `json:"settings"`
	// Video is a snapshot of the source video's metadata, captured at
	// project creation and refreshed on demand.
	Video *VideoSnapshot `json:"video,omitempty"`
	// CreatedAt is when this project was first created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when this project record was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectSettings holds the per-project dubbing configuration.
type ProjectSettings struct {
	// SourceLang is the ISO 639-1 code of the original audio language.
	SourceLang string `json:"source_lang,omitempty"`
	// TargetLang is the ISO 639-1 code of the dub language.
	TargetLang string `json:"target_lang,omitempty"`
	// Voice is the TTS voice identifier.
	Voice string `json:"voice,omitempty"`
	// Quality is the output quality label (e.g. "720p").
	Quality string `json:"quality,omitempty"`
}

// VideoSnapshot is the subset of source video metadata a project keeps.
type VideoSnapshot struct {
	// VideoID is the upstream video ID.
	VideoID string `json:"video_id"`
	// Title is the video title.
	Title string `json:"title"`
	// Author is the channel or uploader name.
	Author string `json:"author,omitempty"`
	// Duration is the video length in seconds.
	Duration int `json:"duration"`
	// Thumbnail is the thumbnail URL.
	Thumbnail string `json:"thumbnail,omitempty"`
	// FetchedAt is when this snapshot was taken.
	FetchedAt time.Time `json:"fetched_at"`
}

// Annotation represents one PDF annotation belonging to a project.
type Annotation struct {
	// ID is the internal unique identifier (UUID).
	ID string `json:"id"`
	// ProjectID is a foreign key reference to Project.ID.
	ProjectID string `json:"project_id"`
	// Page is the zero-based PDF page number.
	Page int `json:"page"`
	// Kind is the annotation type ("highlight", "note", "rect", "underline").
	Kind string `json:"kind"`
	// Rect is the annotation's bounding box in page coordinates.
	Rect Rect `json:"rect"`
	// Color is the display color as a hex string (e.g. "#ffcc00").
	Color string `json:"color,omitempty"`
	// Text is the annotation's text content, if any.
	Text string `json:"text,omitempty"`
	// CreatedAt is when this annotation was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when this annotation was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Rect is an axis-aligned rectangle in PDF page coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// JobStatus indicates where an automation job is in its lifecycle.
type JobStatus string

const (
	// JobQueued means the job is waiting for a worker.
	JobQueued JobStatus = "queued"
	// JobRunning means a worker is processing the job.
	JobRunning JobStatus = "running"
	// JobCompleted means the job finished successfully.
	JobCompleted JobStatus = "completed"
	// JobFailed means the job terminated with an error.
	JobFailed JobStatus = "failed"
)

// Job represents one automation run (e.g. a full dub of a project).
type Job struct {
	// ID is the internal unique identifier (UUID).
	ID string `json:"id"`
	// ProjectID is a foreign key reference to Project.ID.
	ProjectID string `json:"project_id"`
	// Type is the job type ("dub").
	Type string `json:"type"`
	// Status is the current lifecycle state.
	Status JobStatus `json:"status"`
	// Progress is the completion percentage (0-100).
	Progress int `json:"progress"`
	// Stage names the pipeline stage currently running
	// ("fetch", "synthesize", "mux").
	Stage string `json:"stage,omitempty"`
	// Error contains the failure message when Status is failed.
	Error string `json:"error,omitempty"`
	// Result holds stage outputs keyed by name (object store keys, URLs).
	Result map[string]string `json:"result,omitempty"`
	// CreatedAt is when the job was enqueued.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when a worker picked the job up.
	StartedAt time.Time `json:"started_at,omitzero"`
	// FinishedAt is when the job reached a terminal state.
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// clone returns a deep copy. The store never shares its internal
// records with callers.
func (p *Project) clone() *Project {
	c := *p
	if p.Video != nil {
		v := *p.Video
		c.Video = &v
	}
	return &c
}

func (a *Annotation) clone() *Annotation {
	c := *a
	return &c
}

func (j *Job) clone() *Job {
	c := *j
	if j.Result != nil {
		c.Result = make(map[string]string, len(j.Result))
		for k, v := range j.Result {
			c.Result[k] = v
		}
	}
	return &c
}
