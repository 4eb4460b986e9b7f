package fetch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SelectFormat chooses the best muxed format (video plus audio in one
// stream) at or below the given height ceiling. maxHeight 0 means no
// ceiling. It prefers the greatest height, breaking ties by bitrate.
// Returns ErrFormatNotFound if no format qualifies.
func SelectFormat(formats []Format, maxHeight int) (*Format, error) {
	var best *Format

	for i := range formats {
		f := &formats[i]
		if !isMuxed(f) {
			continue
		}
		if maxHeight > 0 && f.Height > maxHeight {
			continue
		}
		if best == nil || f.Height > best.Height ||
			(f.Height == best.Height && f.Bitrate > best.Bitrate) {
			best = f
		}
	}

	if best == nil {
		if maxHeight > 0 {
			return nil, wrapKind(ErrFormatNotFound, fmt.Errorf("no muxed format at or below %dp", maxHeight))
		}
		return nil, wrapKind(ErrFormatNotFound, fmt.Errorf("no muxed format available"))
	}
	return best, nil
}

// isMuxed reports whether f carries both a video track and audio.
func isMuxed(f *Format) bool {
	return strings.HasPrefix(f.MimeType, "video/") && f.AudioChannels > 0
}

var qualityLabelPattern = regexp.MustCompile(`^(\d+)p`)

// HeightForQuality converts a quality label like "720p" or "1080p60"
// to a pixel height. Unknown labels return 0 (no ceiling).
func HeightForQuality(label string) int {
	m := qualityLabelPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0
	}
	h, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return h
}
