package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	apphttp "dubforge/http"
)

const oembedEndpoint = "https://www.youtube.com/oembed"

// OEmbedStrategy fetches basic metadata from the public oEmbed endpoint.
// It is the cheapest strategy: no API key, no player payload, and a
// definitive not-found signal. It never provides stream formats.
type OEmbedStrategy struct {
	client *apphttp.Client
}

// NewOEmbedStrategy creates an oEmbed strategy using the given HTTP client.
func NewOEmbedStrategy(client *apphttp.Client) *OEmbedStrategy {
	return &OEmbedStrategy{client: client}
}

// Name returns "oembed".
func (s *OEmbedStrategy) Name() string { return "oembed" }

// ProvidesFormats returns false; oEmbed has no stream information.
func (s *OEmbedStrategy) ProvidesFormats() bool { return false }

// Fetch retrieves title, author, and thumbnail for a video.
func (s *OEmbedStrategy) Fetch(ctx context.Context, videoID string) (*VideoMeta, error) {
	watchURL := "https://www.youtube.com/watch?v=" + videoID
	endpoint := oembedEndpoint + "?format=json&url=" + url.QueryEscape(watchURL)

	resp, err := s.client.Get(ctx, endpoint)
	if err != nil {
		return nil, s.classify(err)
	}

	var payload struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		AuthorURL    string `json:"author_url"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("oembed: parse response: %w", err)
	}
	if payload.Title == "" {
		return nil, fmt.Errorf("oembed: empty title in response")
	}

	return &VideoMeta{
		ID:        videoID,
		Title:     payload.Title,
		Author:    payload.AuthorName,
		ChannelID: channelIDFromAuthorURL(payload.AuthorURL),
		Thumbnail: payload.ThumbnailURL,
	}, nil
}

// classify maps oEmbed HTTP failures onto the fetch taxonomy.
// The endpoint returns 404 for unknown videos and 400 for malformed IDs;
// 401 means embedding is disabled, which says nothing about availability,
// so it stays a plain error and the chain moves on.
func (s *OEmbedStrategy) classify(err error) error {
	var httpErr *apphttp.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case 404:
			return wrapKind(ErrVideoNotFound, err)
		case 400:
			return wrapKind(ErrInvalidURL, err)
		}
	}
	return fmt.Errorf("oembed: %w", err)
}

// channelIDFromAuthorURL extracts a channel ID from an oEmbed author URL.
// Handle-style URLs (youtube.com/@name) carry no channel ID and yield "".
func channelIDFromAuthorURL(authorURL string) string {
	const marker = "/channel/"
	idx := strings.Index(authorURL, marker)
	if idx == -1 {
		return ""
	}
	id := authorURL[idx+len(marker):]
	if i := strings.IndexByte(id, '/'); i != -1 {
		id = id[:i]
	}
	return id
}
