// Package fetch provides video metadata retrieval with a fallback strategy
// pipeline. Strategies are tried in order until one succeeds; permanent
// failures abort the chain and exhaustion yields AllStrategiesFailedError.
package fetch

import "time"

// VideoMeta contains metadata about a video as reported by a fetch strategy.
type VideoMeta struct {
	// ID is the video ID (e.g., "dQw4w9WgXcQ").
	ID string `json:"id"`

	// Title is the video title.
	Title string `json:"title"`

	// Description is the video description. May be truncated by some sources.
	Description string `json:"description,omitempty"`

	// Author is the display name of the channel.
	Author string `json:"author,omitempty"`

	// ChannelID is the channel ID (e.g., "UCuAXFkgsw1L7xaCfnd5JJOw").
	ChannelID string `json:"channel_id,omitempty"`

	// Duration is the video length. May be zero for some sources.
	Duration time.Duration `json:"duration,omitempty"`

	// ViewCount is the number of views. May be zero if not available.
	ViewCount int64 `json:"view_count,omitempty"`

	// PublishedAt is when the video was published. May be zero for some sources.
	PublishedAt time.Time `json:"published_at,omitempty"`

	// Thumbnail is the URL to the video thumbnail image.
	Thumbnail string `json:"thumbnail,omitempty"`

	// Formats lists the available stream formats. Only populated by
	// strategies whose ProvidesFormats() is true.
	Formats []Format `json:"formats,omitempty"`

	// Source is the name of the strategy that produced this metadata.
	Source string `json:"source,omitempty"`

	// FetchedAt is the timestamp when this metadata was retrieved.
	FetchedAt time.Time `json:"fetched_at"`
}

// WatchURL returns the full watch URL for this video.
func (m VideoMeta) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + m.ID
}

// Format describes a single downloadable stream format.
type Format struct {
	// Itag is the format's itag number.
	Itag int `json:"itag"`

	// MimeType is the full MIME type, e.g. `video/mp4; codecs="avc1.4d401f"`.
	MimeType string `json:"mime_type"`

	// QualityLabel is the human label, e.g. "720p" or "1080p60".
	QualityLabel string `json:"quality_label,omitempty"`

	// Width and Height are the video dimensions in pixels.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Bitrate is the stream bitrate in bits per second.
	Bitrate int `json:"bitrate,omitempty"`

	// AudioChannels is the number of audio channels (0 = video only).
	AudioChannels int `json:"audio_channels,omitempty"`

	// URL is the signed stream URL. Signed URLs expire, so this is never persisted.
	URL string `json:"-"`
}
