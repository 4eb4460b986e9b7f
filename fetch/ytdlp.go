package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// YtdlpStrategy fetches metadata by shelling out to yt-dlp. It is the
// slowest strategy but also the most resilient to player-side changes,
// so it sits late in the default chain.
type YtdlpStrategy struct {
	// Path is the yt-dlp executable path (default "yt-dlp").
	Path string
	// Timeout bounds a single yt-dlp invocation.
	Timeout time.Duration
}

// NewYtdlpStrategy creates a yt-dlp strategy.
func NewYtdlpStrategy(path string, timeout time.Duration) *YtdlpStrategy {
	if path == "" {
		path = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &YtdlpStrategy{Path: path, Timeout: timeout}
}

// Name returns "ytdlp".
func (s *YtdlpStrategy) Name() string { return "ytdlp" }

// ProvidesFormats returns true; yt-dlp reports the full format list.
func (s *YtdlpStrategy) ProvidesFormats() bool { return true }

// Fetch runs yt-dlp with JSON output and parses the result.
func (s *YtdlpStrategy) Fetch(ctx context.Context, videoID string) (*VideoMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Path, "-J", "--no-warnings", videoID)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrYtdlpNotInstalled
		}
		return nil, s.classify(stderr.String(), err)
	}

	var rawData map[string]interface{}
	if err := json.Unmarshal(stdout.Bytes(), &rawData); err != nil {
		return nil, fmt.Errorf("ytdlp: parse metadata JSON: %w", err)
	}

	meta := &VideoMeta{
		FetchedAt: time.Now().UTC(),
	}

	// Required fields
	if id, ok := rawData["id"].(string); ok && id != "" {
		meta.ID = id
	} else {
		return nil, fmt.Errorf("ytdlp: missing or empty id in metadata")
	}

	if title, ok := rawData["title"].(string); ok && title != "" {
		meta.Title = title
	} else {
		return nil, fmt.Errorf("ytdlp: missing or empty title in metadata")
	}

	// Optional fields with type safety
	if desc, ok := rawData["description"].(string); ok {
		meta.Description = desc
	}
	if duration, ok := rawData["duration"].(float64); ok {
		meta.Duration = time.Duration(duration) * time.Second
	}
	if views, ok := rawData["view_count"].(float64); ok {
		meta.ViewCount = int64(views)
	}
	if uploader, ok := rawData["uploader"].(string); ok {
		meta.Author = uploader
	}
	if channelID, ok := rawData["channel_id"].(string); ok {
		meta.ChannelID = channelID
	}
	if thumb, ok := rawData["thumbnail"].(string); ok {
		meta.Thumbnail = thumb
	}
	if date, ok := rawData["upload_date"].(string); ok {
		// yt-dlp reports YYYYMMDD
		if t, err := time.Parse("20060102", date); err == nil {
			meta.PublishedAt = t
		}
	}

	if rawFormats, ok := rawData["formats"].([]interface{}); ok {
		meta.Formats = parseYtdlpFormats(rawFormats)
	}

	return meta, nil
}

// classify maps yt-dlp stderr output onto the fetch taxonomy.
func (s *YtdlpStrategy) classify(stderr string, err error) error {
	msg := strings.ToLower(stderr)

	switch {
	case strings.Contains(msg, "private video"),
		strings.Contains(msg, "video unavailable"),
		strings.Contains(msg, "removed"):
		return wrapKind(ErrVideoUnavailable, fmt.Errorf("%w: %s", err, firstLine(stderr)))

	case strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "not available"):
		return wrapKind(ErrVideoNotFound, fmt.Errorf("%w: %s", err, firstLine(stderr)))

	case strings.Contains(msg, "incomplete youtube id"),
		strings.Contains(msg, "is not a valid url"):
		return wrapKind(ErrInvalidURL, fmt.Errorf("%w: %s", err, firstLine(stderr)))
	}

	return fmt.Errorf("ytdlp: %w: %s", err, firstLine(stderr))
}

// parseYtdlpFormats converts yt-dlp's format objects into Format values.
func parseYtdlpFormats(raw []interface{}) []Format {
	formats := make([]Format, 0, len(raw))
	for _, rf := range raw {
		obj, ok := rf.(map[string]interface{})
		if !ok {
			continue
		}

		var f Format
		// format_id is the itag for native formats; synthetic ids like
		// the storyboard "sb0" entries are not usable streams
		v, ok := obj["format_id"].(string)
		if !ok {
			continue
		}
		itag, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		f.Itag = itag
		if v, ok := obj["ext"].(string); ok {
			f.MimeType = "video/" + v
		}
		if v, ok := obj["vcodec"].(string); ok && (v == "none" || v == "") {
			f.MimeType = strings.Replace(f.MimeType, "video/", "audio/", 1)
		}
		if v, ok := obj["format_note"].(string); ok {
			f.QualityLabel = v
		}
		if v, ok := obj["width"].(float64); ok {
			f.Width = int(v)
		}
		if v, ok := obj["height"].(float64); ok {
			f.Height = int(v)
		}
		if v, ok := obj["tbr"].(float64); ok {
			f.Bitrate = int(v * 1000) // tbr is in Kbps
		}
		if v, ok := obj["audio_channels"].(float64); ok {
			f.AudioChannels = int(v)
		}
		if v, ok := obj["url"].(string); ok {
			f.URL = v
		}

		formats = append(formats, f)
	}
	return formats
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx]
	}
	return s
}
