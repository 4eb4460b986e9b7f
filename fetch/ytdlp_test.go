package fetch

import (
	"errors"
	"testing"
)

func TestYtdlpClassify(t *testing.T) {
	s := NewYtdlpStrategy("", 0)
	base := errors.New("exit status 1")

	tests := []struct {
		name   string
		stderr string
		want   *Error
	}{
		{"private", "ERROR: [youtube] abc: Private video. Sign in if you've been granted access", ErrVideoUnavailable},
		{"unavailable", "ERROR: [youtube] abc: Video unavailable", ErrVideoUnavailable},
		{"missing", "ERROR: [youtube] abc: Video unavailable. This video does not exist", ErrVideoUnavailable},
		{"bad id", "ERROR: [youtube] Incomplete YouTube ID abc", ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.classify(tt.stderr, base)
			if !errors.Is(err, tt.want) {
				t.Errorf("classify(%q) = %v, want kind %s", tt.stderr, err, tt.want.Code)
			}
		})
	}

	t.Run("unknown stays transient", func(t *testing.T) {
		err := s.classify("ERROR: unable to download webpage", base)
		if isChainAbort(err) {
			t.Errorf("unknown failures must not abort the chain: %v", err)
		}
	})
}

func TestParseYtdlpFormats(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{
			"format_id": "22", "ext": "mp4", "vcodec": "avc1", "format_note": "720p",
			"width": 1280.0, "height": 720.0, "tbr": 2000.0, "audio_channels": 2.0,
			"url": "https://example.com/22",
		},
		map[string]interface{}{
			"format_id": "140", "ext": "m4a", "vcodec": "none",
			"tbr": 128.0, "audio_channels": 2.0,
		},
		// Storyboard pseudo-format; skipped because "sb0" is not an itag
		map[string]interface{}{
			"format_id": "sb0", "ext": "mhtml", "format_note": "storyboard",
		},
		"not an object",
	}

	formats := parseYtdlpFormats(raw)
	if len(formats) != 2 {
		t.Fatalf("got %d formats, want 2", len(formats))
	}

	f := formats[0]
	if f.Itag != 22 || f.Height != 720 || f.AudioChannels != 2 {
		t.Errorf("unexpected muxed format: %+v", f)
	}
	if f.Bitrate != 2_000_000 {
		t.Errorf("Bitrate = %d, want 2000000", f.Bitrate)
	}
	if f.URL != "https://example.com/22" {
		t.Errorf("URL = %q", f.URL)
	}

	if got := formats[1].MimeType; got != "audio/m4a" {
		t.Errorf("audio-only MimeType = %q, want audio/m4a", got)
	}
}
