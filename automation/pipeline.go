package automation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"dubforge/fetch"
	"dubforge/objectstore"
	"dubforge/storage"
	"dubforge/tts"
)

// ErrFfmpegNotInstalled indicates the ffmpeg binary was not found on PATH.
var ErrFfmpegNotInstalled = errors.New("automation: ffmpeg not installed")

// Stage is one step of the dub pipeline. Run returns stage outputs to
// merge into the job's Result map.
type Stage struct {
	// Name labels the stage ("fetch", "synthesize", "mux").
	Name string
	// Run executes the stage.
	Run func(ctx context.Context, job *storage.Job, project *storage.Project) (map[string]string, error)
}

// VideoFetcher resolves a source URL to metadata with stream formats.
type VideoFetcher interface {
	Fetch(ctx context.Context, rawURL string, opts *fetch.Options) (*fetch.VideoMeta, error)
}

// PipelineConfig wires the dub pipeline's dependencies.
type PipelineConfig struct {
	Fetcher    VideoFetcher
	Provider   tts.Provider
	Objects    objectstore.Store
	FfmpegPath string // default "ffmpeg"
}

// DubStages builds the standard three-stage dub pipeline:
// fetch the source stream, synthesize the dub track, mux them together.
func DubStages(cfg PipelineConfig) []Stage {
	if cfg.FfmpegPath == "" {
		cfg.FfmpegPath = "ffmpeg"
	}

	return []Stage{
		{Name: "fetch", Run: func(ctx context.Context, job *storage.Job, project *storage.Project) (map[string]string, error) {
			if project.SourceVideoURL == "" {
				return nil, fmt.Errorf("project %s has no source video", project.ID)
			}

			opts := &fetch.Options{
				RequireFormats: true,
				MaxHeight:      fetch.HeightForQuality(project.Settings.Quality),
			}
			meta, err := cfg.Fetcher.Fetch(ctx, project.SourceVideoURL, opts)
			if err != nil {
				return nil, err
			}

			format, err := fetch.SelectFormat(meta.Formats, opts.MaxHeight)
			if err != nil {
				return nil, err
			}

			return map[string]string{
				"video_id":    meta.ID,
				"stream_url":  format.URL,
				"format_itag": strconv.Itoa(format.Itag),
			}, nil
		}},

		{Name: "synthesize", Run: func(ctx context.Context, job *storage.Job, project *storage.Project) (map[string]string, error) {
			script := project.Description
			if script == "" {
				script = project.Name
			}

			audio, err := cfg.Provider.Synthesize(ctx, tts.Request{
				Text:     script,
				Voice:    project.Settings.Voice,
				Language: project.Settings.TargetLang,
			})
			if err != nil {
				return nil, err
			}

			info, err := cfg.Objects.Put(ctx, job.ID+"-dub-audio",
				audio.MimeType, bytes.NewReader(audio.Data), int64(len(audio.Data)))
			if err != nil {
				return nil, err
			}

			return map[string]string{"audio_key": info.Key}, nil
		}},

		{Name: "mux", Run: func(ctx context.Context, job *storage.Job, project *storage.Project) (map[string]string, error) {
			streamURL := job.Result["stream_url"]
			audioKey := job.Result["audio_key"]
			if streamURL == "" || audioKey == "" {
				return nil, fmt.Errorf("mux inputs missing (stream_url=%q audio_key=%q)", streamURL, audioKey)
			}

			key, err := muxDubTrack(ctx, cfg, streamURL, audioKey, job.ID)
			if err != nil {
				return nil, err
			}
			return map[string]string{"output_key": key}, nil
		}},
	}
}

// muxDubTrack replaces the source audio with the synthesized track and
// uploads the result.
func muxDubTrack(ctx context.Context, cfg PipelineConfig, streamURL, audioKey, jobID string) (string, error) {
	workDir, err := os.MkdirTemp("", "dubforge-mux-")
	if err != nil {
		return "", fmt.Errorf("mux workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	audioPath := filepath.Join(workDir, "dub-audio")
	if err := downloadObject(ctx, cfg.Objects, audioKey, audioPath); err != nil {
		return "", err
	}

	outPath := filepath.Join(workDir, "output.mp4")
	cmd := exec.CommandContext(ctx, cfg.FfmpegPath,
		"-y",
		"-i", streamURL,
		"-i", audioPath,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-shortest",
		outPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", ErrFfmpegNotInstalled
		}
		return "", fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}

	out, err := os.Open(outPath)
	if err != nil {
		return "", fmt.Errorf("open mux output: %w", err)
	}
	defer out.Close()

	stat, err := out.Stat()
	if err != nil {
		return "", fmt.Errorf("stat mux output: %w", err)
	}

	info, err := cfg.Objects.Put(ctx, jobID+"-dubbed.mp4", "video/mp4", out, stat.Size())
	if err != nil {
		return "", err
	}
	return info.Key, nil
}

func downloadObject(ctx context.Context, objects objectstore.Store, key, dest string) error {
	rc, err := objects.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.ReadFrom(rc); err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	return nil
}

func lastLine(s string) string {
	lines := bytes.Split(bytes.TrimSpace([]byte(s)), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(lines[len(lines)-1])
}
