package fetch

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// videoIDPattern matches a bare 11-character video ID.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseVideoID extracts the video ID from a URL or bare ID.
// Accepted forms:
//
//	dQw4w9WgXcQ
//	https://www.youtube.com/watch?v=dQw4w9WgXcQ
//	https://youtu.be/dQw4w9WgXcQ
//	https://www.youtube.com/embed/dQw4w9WgXcQ
//	https://www.youtube.com/shorts/dQw4w9WgXcQ
//	https://www.youtube.com/live/dQw4w9WgXcQ
//	https://www.youtube.com/v/dQw4w9WgXcQ
//
// Anything else returns ErrInvalidURL.
func ParseVideoID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", wrapKind(ErrInvalidURL, errors.New("empty URL"))
	}

	// Bare video ID
	if videoIDPattern.MatchString(s) {
		return s, nil
	}

	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", wrapKind(ErrInvalidURL, err)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "m.youtube.com" {
		host = "youtube.com"
	}

	var id string
	switch host {
	case "youtu.be":
		id = firstPathSegment(u.Path)

	case "youtube.com", "youtube-nocookie.com", "music.youtube.com":
		segments := splitPath(u.Path)
		if len(segments) == 0 {
			return "", wrapKind(ErrInvalidURL, fmt.Errorf("no path in %q", raw))
		}
		switch segments[0] {
		case "watch":
			id = u.Query().Get("v")
		case "embed", "shorts", "live", "v":
			if len(segments) > 1 {
				id = segments[1]
			}
		default:
			return "", wrapKind(ErrInvalidURL, fmt.Errorf("unrecognized path %q", u.Path))
		}

	default:
		return "", wrapKind(ErrInvalidURL, fmt.Errorf("unsupported host %q", u.Hostname()))
	}

	if !videoIDPattern.MatchString(id) {
		return "", wrapKind(ErrInvalidURL, fmt.Errorf("malformed video ID %q", id))
	}
	return id, nil
}

func firstPathSegment(path string) string {
	segments := splitPath(path)
	if len(segments) == 0 {
		return ""
	}
	return segments[0]
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}
