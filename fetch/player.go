package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	ytplayer "github.com/kkdai/youtube/v2"
)

// PlayerStrategy fetches metadata and stream formats through the player
// client. It is the primary format-bearing strategy: no API key required
// and the full stream list is available.
type PlayerStrategy struct {
	client ytplayer.Client
}

// NewPlayerStrategy creates a player strategy. httpClient may be nil to use
// the library default.
func NewPlayerStrategy(httpClient *http.Client) *PlayerStrategy {
	return &PlayerStrategy{client: ytplayer.Client{HTTPClient: httpClient}}
}

// Name returns "player".
func (s *PlayerStrategy) Name() string { return "player" }

// ProvidesFormats returns true; the player response carries the stream list.
func (s *PlayerStrategy) ProvidesFormats() bool { return true }

// Fetch retrieves full metadata including stream formats for a video.
func (s *PlayerStrategy) Fetch(ctx context.Context, videoID string) (*VideoMeta, error) {
	video, err := s.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, s.classify(err)
	}

	meta := &VideoMeta{
		ID:          video.ID,
		Title:       video.Title,
		Description: video.Description,
		Author:      video.Author,
		ChannelID:   video.ChannelID,
		Duration:    video.Duration,
		ViewCount:   int64(video.Views),
		PublishedAt: video.PublishDate,
	}

	// Prefer the largest thumbnail
	for _, t := range video.Thumbnails {
		meta.Thumbnail = t.URL
	}

	meta.Formats = make([]Format, 0, len(video.Formats))
	for _, f := range video.Formats {
		meta.Formats = append(meta.Formats, Format{
			Itag:          f.ItagNo,
			MimeType:      f.MimeType,
			QualityLabel:  f.QualityLabel,
			Width:         f.Width,
			Height:        f.Height,
			Bitrate:       f.Bitrate,
			AudioChannels: f.AudioChannels,
			URL:           f.URL,
		})
	}

	return meta, nil
}

// classify maps player client failures onto the fetch taxonomy. The client
// library does not export a stable error taxonomy, so classification works
// on the playability reason text it surfaces.
func (s *PlayerStrategy) classify(err error) error {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "private"),
		strings.Contains(msg, "removed"),
		strings.Contains(msg, "terminated"),
		strings.Contains(msg, "age"):
		return wrapKind(ErrVideoUnavailable, err)

	case strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "not found"):
		return wrapKind(ErrVideoNotFound, err)

	case strings.Contains(msg, "invalid characters"),
		strings.Contains(msg, "id length"):
		return wrapKind(ErrInvalidURL, err)
	}

	return fmt.Errorf("player: %w", err)
}
