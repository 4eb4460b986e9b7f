package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeStrategy is a scriptable Strategy for chain tests.
type fakeStrategy struct {
	name    string
	formats bool
	meta    *VideoMeta
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (s *fakeStrategy) Name() string          { return s.name }
func (s *fakeStrategy) ProvidesFormats() bool { return s.formats }

func (s *fakeStrategy) Fetch(ctx context.Context, videoID string) (*VideoMeta, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	meta := *s.meta
	meta.ID = videoID
	return &meta, nil
}

func muxedMeta() *VideoMeta {
	return &VideoMeta{
		Title: "Test Video",
		Formats: []Format{
			{Itag: 22, MimeType: "video/mp4", Height: 720, Bitrate: 2_000_000, AudioChannels: 2},
		},
	}
}

func TestFetcher_FirstStrategyWins(t *testing.T) {
	first := &fakeStrategy{name: "oembed", meta: &VideoMeta{Title: "Test Video"}}
	second := &fakeStrategy{name: "player", formats: true, meta: muxedMeta()}

	f := NewFetcher(first, second)
	meta, err := f.FetchByID(context.Background(), "dQw4w9WgXcQ", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Source != "oembed" {
		t.Errorf("Source = %q, want oembed", meta.Source)
	}
	if second.calls.Load() != 0 {
		t.Error("second strategy should not be called after first succeeds")
	}
	if meta.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}
}

func TestFetcher_FallsThroughTransientFailure(t *testing.T) {
	first := &fakeStrategy{name: "oembed", err: errors.New("connection reset")}
	second := &fakeStrategy{name: "player", formats: true, meta: muxedMeta()}

	f := NewFetcher(first, second)
	meta, err := f.FetchByID(context.Background(), "dQw4w9WgXcQ", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Source != "player" {
		t.Errorf("Source = %q, want player", meta.Source)
	}
}

func TestFetcher_PermanentErrorAbortsChain(t *testing.T) {
	first := &fakeStrategy{name: "oembed", err: wrapKind(ErrVideoNotFound, errors.New("404"))}
	second := &fakeStrategy{name: "player", formats: true, meta: muxedMeta()}

	f := NewFetcher(first, second)
	_, err := f.FetchByID(context.Background(), "dQw4w9WgXcQ", nil)
	if !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("got %v, want ErrVideoNotFound", err)
	}
	if second.calls.Load() != 0 {
		t.Error("chain should abort on a permanent error")
	}
}

func TestFetcher_AllStrategiesFailed(t *testing.T) {
	first := &fakeStrategy{name: "oembed", err: errors.New("timeout")}
	second := &fakeStrategy{name: "player", formats: true, err: errors.New("throttled")}

	f := NewFetcher(first, second)
	_, err := f.FetchByID(context.Background(), "dQw4w9WgXcQ", nil)

	var failed *AllStrategiesFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("got %T, want *AllStrategiesFailedError", err)
	}
	if failed.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("VideoID = %q", failed.VideoID)
	}
	if len(failed.Attempts) != 2 {
		t.Fatalf("Attempts = %d, want 2", len(failed.Attempts))
	}
	if failed.Attempts[0].Strategy != "oembed" || failed.Attempts[1].Strategy != "player" {
		t.Errorf("attempt order wrong: %+v", failed.Attempts)
	}
}

func TestFetcher_RequireFormatsSkipsMetadataOnlyStrategies(t *testing.T) {
	metaOnly := &fakeStrategy{name: "oembed", meta: &VideoMeta{Title: "Test Video"}}
	withFormats := &fakeStrategy{name: "player", formats: true, meta: muxedMeta()}

	f := NewFetcher(metaOnly, withFormats)
	meta, err := f.FetchByID(context.Background(), "dQw4w9WgXcQ", &Options{RequireFormats: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Source != "player" {
		t.Errorf("Source = %q, want player", meta.Source)
	}
	if metaOnly.calls.Load() != 0 {
		t.Error("metadata-only strategy should be skipped when formats are required")
	}
}

func TestFetcher_RequireFormatsRejectsUnusableFormats(t *testing.T) {
	videoOnly := &fakeStrategy{name: "player", formats: true, meta: &VideoMeta{
		Title: "Test Video",
		Formats: []Format{
			{Itag: 137, MimeType: "video/mp4", Height: 1080, AudioChannels: 0},
		},
	}}

	f := NewFetcher(videoOnly)
	_, err := f.FetchByID(context.Background(), "dQw4w9WgXcQ", &Options{RequireFormats: true})

	var failed *AllStrategiesFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("got %T, want *AllStrategiesFailedError", err)
	}
	if !errors.Is(failed.Attempts[0].Err, ErrFormatNotFound) {
		t.Errorf("attempt error = %v, want ErrFormatNotFound", failed.Attempts[0].Err)
	}
}

func TestFetcher_MaxHeightCeiling(t *testing.T) {
	s := &fakeStrategy{name: "player", formats: true, meta: &VideoMeta{
		Title: "Test Video",
		Formats: []Format{
			{Itag: 18, MimeType: "video/mp4", Height: 360, AudioChannels: 2},
			{Itag: 22, MimeType: "video/mp4", Height: 720, AudioChannels: 2},
		},
	}}

	f := NewFetcher(s)
	meta, err := f.FetchByID(context.Background(), "dQw4w9WgXcQ", &Options{RequireFormats: true, MaxHeight: 480})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel, err := SelectFormat(meta.Formats, 480)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Itag != 18 {
		t.Errorf("selected itag %d, want 18", sel.Itag)
	}
}

func TestFetcher_ContextCancellationStopsChain(t *testing.T) {
	slow := &fakeStrategy{name: "oembed", delay: time.Second, meta: &VideoMeta{Title: "Test Video"}}
	next := &fakeStrategy{name: "player", formats: true, meta: muxedMeta()}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	f := NewFetcher(slow, next)
	_, err := f.FetchByID(ctx, "dQw4w9WgXcQ", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
	if next.calls.Load() != 0 {
		t.Error("chain should stop when context expires")
	}
}

func TestFetcher_SingleflightCollapsesConcurrentFetches(t *testing.T) {
	s := &fakeStrategy{name: "player", formats: true, meta: muxedMeta(), delay: 50 * time.Millisecond}
	f := NewFetcher(s)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.FetchByID(context.Background(), "dQw4w9WgXcQ", nil); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := s.calls.Load(); n != 1 {
		t.Errorf("strategy called %d times, want 1", n)
	}
}

func TestFetcher_FetchParsesURL(t *testing.T) {
	s := &fakeStrategy{name: "oembed", meta: &VideoMeta{Title: "Test Video"}}
	f := NewFetcher(s)

	meta, err := f.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.ID != "dQw4w9WgXcQ" {
		t.Errorf("ID = %q", meta.ID)
	}

	_, err = f.Fetch(context.Background(), "https://vimeo.com/1234", nil)
	if !errors.Is(err, ErrInvalidURL) {
		t.Errorf("got %v, want ErrInvalidURL", err)
	}
	if s.calls.Load() != 1 {
		t.Error("strategies should not run for an invalid URL")
	}
}
