package fetch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"dubforge/internal/retry"
)

const dataAPIDailyQuota = 10000

// DataAPIStrategy fetches metadata through YouTube Data API v3. It needs
// an API key and consumes quota, so it runs last in the default chain,
// but its responses are the most complete and the most stable.
type DataAPIStrategy struct {
	service     *youtubeapi.Service
	RetryConfig *retry.Config

	// Quota tracking
	mu             sync.Mutex
	estimatedQuota int
	lastQuotaReset time.Time
	quotaReserve   int
}

// NewDataAPIStrategy creates a Data API strategy. quotaReserve is the
// minimum number of quota units to keep in reserve before the strategy
// starts refusing calls.
func NewDataAPIStrategy(apiKey string, quotaReserve int) (*DataAPIStrategy, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}

	service, err := youtubeapi.NewService(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	cfg := retry.DefaultConfig()
	return &DataAPIStrategy{
		service:        service,
		RetryConfig:    &cfg,
		estimatedQuota: dataAPIDailyQuota,
		lastQuotaReset: time.Now(),
		quotaReserve:   quotaReserve,
	}, nil
}

// Name returns "dataapi".
func (s *DataAPIStrategy) Name() string { return "dataapi" }

// ProvidesFormats returns false; the Data API never exposes stream formats.
func (s *DataAPIStrategy) ProvidesFormats() bool { return false }

// Fetch looks up a single video via videos.list.
func (s *DataAPIStrategy) Fetch(ctx context.Context, videoID string) (*VideoMeta, error) {
	if !s.haveQuota() {
		return nil, fmt.Errorf("dataapi: quota reserve reached")
	}

	cfg := s.RetryConfig
	if cfg == nil {
		defaultCfg := retry.DefaultConfig()
		cfg = &defaultCfg
	}

	var meta *VideoMeta
	err := retry.Do(ctx, *cfg, dataAPIErrorClassifier, func(ctx context.Context) error {
		call := s.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(videoID).
			Context(ctx)

		resp, err := call.Do()
		if err != nil {
			return err
		}
		s.trackQuotaUsage(1) // videos.list uses 1 unit

		if len(resp.Items) == 0 {
			return retry.Permanent(wrapKind(ErrVideoNotFound, fmt.Errorf("dataapi: no items for %s", videoID)))
		}

		item := resp.Items[0]
		m := &VideoMeta{
			ID:        item.Id,
			FetchedAt: time.Now().UTC(),
		}

		if item.Snippet != nil {
			m.Title = item.Snippet.Title
			m.Description = item.Snippet.Description
			m.Author = item.Snippet.ChannelTitle
			m.ChannelID = item.Snippet.ChannelId
			if item.Snippet.Thumbnails != nil {
				m.Thumbnail = bestThumbnail(item.Snippet.Thumbnails)
			}
			if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
				m.PublishedAt = t
			}
		}
		if item.ContentDetails != nil {
			if d, err := parseISO8601Duration(item.ContentDetails.Duration); err == nil {
				m.Duration = d
			}
		}
		if item.Statistics != nil {
			m.ViewCount = int64(item.Statistics.ViewCount)
		}

		meta = m
		return nil
	})

	if err != nil {
		var perm *retry.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Err
		}
		return nil, fmt.Errorf("dataapi: %w", err)
	}

	return meta, nil
}

func bestThumbnail(t *youtubeapi.ThumbnailDetails) string {
	switch {
	case t.Maxres != nil:
		return t.Maxres.Url
	case t.High != nil:
		return t.High.Url
	case t.Medium != nil:
		return t.Medium.Url
	case t.Default != nil:
		return t.Default.Url
	}
	return ""
}

func (s *DataAPIStrategy) haveQuota() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastQuotaReset) > 24*time.Hour {
		s.estimatedQuota = dataAPIDailyQuota
		s.lastQuotaReset = time.Now()
	}
	return s.estimatedQuota > s.quotaReserve
}

func (s *DataAPIStrategy) trackQuotaUsage(units int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimatedQuota -= units
}

// EstimatedQuota returns the estimated remaining quota units.
func (s *DataAPIStrategy) EstimatedQuota() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimatedQuota
}

// dataAPIErrorClassifier determines if a Data API error is retryable.
func dataAPIErrorClassifier(err error) bool {
	if err == nil {
		return false
	}

	if strings.Contains(err.Error(), "quotaExceeded") {
		return true
	}
	if strings.Contains(err.Error(), "rateLimitExceeded") {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return retry.IsRetryable(err)
}

var iso8601DurationRegex = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISO8601Duration parses the subset of ISO 8601 durations the Data
// API emits (PT#H#M#S, occasionally P#DT...).
func parseISO8601Duration(raw string) (time.Duration, error) {
	m := iso8601DurationRegex.FindStringSubmatch(raw)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}

	var total time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		total += time.Duration(n) * u
	}
	return total, nil
}
