package fetch

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"
)

// Strategy defines one way of fetching video metadata.
// Different implementations trade completeness against cost: the oEmbed
// endpoint is cheap but has no formats, the player client and yt-dlp are
// heavier but return the full stream list.
type Strategy interface {
	// Name identifies the strategy ("oembed", "player", "ytdlp", "dataapi").
	Name() string

	// Fetch retrieves metadata for the given video ID.
	Fetch(ctx context.Context, videoID string) (*VideoMeta, error)

	// ProvidesFormats returns true if this strategy populates VideoMeta.Formats.
	ProvidesFormats() bool
}

// Options configures a fetch operation.
type Options struct {
	// RequireFormats skips strategies that cannot provide stream formats
	// and fails the operation if no surviving strategy yields a usable format.
	RequireFormats bool

	// MaxHeight is the quality ceiling for format selection in pixels
	// (e.g. 1080). 0 means no ceiling. Only relevant with RequireFormats.
	MaxHeight int
}

// Fetcher walks an ordered strategy chain until one strategy succeeds.
// Permanent errors (invalid URL, not found, unavailable) abort the chain;
// anything else moves on to the next strategy. Concurrent fetches of the
// same video are collapsed into a single upstream call.
type Fetcher struct {
	strategies []Strategy
	group      singleflight.Group
}

// NewFetcher creates a fetcher that tries the given strategies in order.
func NewFetcher(strategies ...Strategy) *Fetcher {
	return &Fetcher{strategies: strategies}
}

// Strategies returns the names of the configured strategies in order.
func (f *Fetcher) Strategies() []string {
	names := make([]string, len(f.strategies))
	for i, s := range f.strategies {
		names[i] = s.Name()
	}
	return names
}

// Fetch resolves rawURL to a video ID and fetches its metadata.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts *Options) (*VideoMeta, error) {
	videoID, err := ParseVideoID(rawURL)
	if err != nil {
		return nil, err
	}
	return f.FetchByID(ctx, videoID, opts)
}

// FetchByID fetches metadata for a known video ID.
func (f *Fetcher) FetchByID(ctx context.Context, videoID string, opts *Options) (*VideoMeta, error) {
	if opts == nil {
		opts = &Options{}
	}

	// Key format-bearing fetches separately so a cheap metadata fetch
	// doesn't satisfy a caller that needs stream formats.
	key := videoID
	if opts.RequireFormats {
		key += ":formats"
	}

	v, err, _ := f.group.Do(key, func() (interface{}, error) {
		return f.run(ctx, videoID, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*VideoMeta), nil
}

// run executes the strategy chain for a single video.
func (f *Fetcher) run(ctx context.Context, videoID string, opts *Options) (*VideoMeta, error) {
	var attempts []StrategyAttempt

	for _, s := range f.strategies {
		if opts.RequireFormats && !s.ProvidesFormats() {
			continue
		}

		meta, err := s.Fetch(ctx, videoID)
		if err == nil && opts.RequireFormats {
			// A strategy can succeed yet carry no usable format.
			if _, serr := SelectFormat(meta.Formats, opts.MaxHeight); serr != nil {
				err = serr
			}
		}

		if err == nil {
			meta.Source = s.Name()
			if meta.FetchedAt.IsZero() {
				meta.FetchedAt = time.Now().UTC()
			}
			return meta, nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if isChainAbort(err) {
			return nil, err
		}

		attempts = append(attempts, StrategyAttempt{Strategy: s.Name(), Err: err})
	}

	return nil, &AllStrategiesFailedError{VideoID: videoID, Attempts: attempts}
}
