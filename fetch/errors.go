package fetch

import (
	"errors"
	"net/http"
	"strings"
)

// Error binds a fetch failure to a stable HTTP status and machine-readable
// code so every transport surface reports the same taxonomy. Use errors.Is()
// with the sentinel values to test for a kind:
//
//	if errors.Is(err, fetch.ErrVideoNotFound) {
//		// 404 territory
//	}
type Error struct {
	// Code is the machine-readable error code (e.g. "VIDEO_NOT_FOUND").
	Code string
	// Status is the HTTP status this error maps to.
	Status int
	// Message is the fixed human-readable message for this kind.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// Error returns a string representation of the fetch error.
func (e *Error) Error() string {
	if e.Err != nil {
		return "fetch: " + e.Message + ": " + e.Err.Error()
	}
	return "fetch: " + e.Message
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same kind of fetch error.
// Two fetch errors match when their codes are equal, regardless of cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// The closed set of fetch error kinds. Each carries a fixed message,
// HTTP status, and code string for uniform client handling.
var (
	// ErrInvalidURL indicates the provided URL is not a recognizable video URL.
	ErrInvalidURL = &Error{Code: "INVALID_URL", Status: http.StatusBadRequest, Message: "invalid video URL"}
	// ErrVideoNotFound indicates the video does not exist.
	ErrVideoNotFound = &Error{Code: "VIDEO_NOT_FOUND", Status: http.StatusNotFound, Message: "video not found"}
	// ErrVideoUnavailable indicates the video exists but cannot be accessed
	// (private, removed, or region locked).
	ErrVideoUnavailable = &Error{Code: "VIDEO_UNAVAILABLE", Status: http.StatusGone, Message: "video unavailable"}
	// ErrFormatNotFound indicates no stream format matched the requested constraints.
	ErrFormatNotFound = &Error{Code: "FORMAT_NOT_FOUND", Status: http.StatusUnprocessableEntity, Message: "no matching stream format"}
)

// ErrYtdlpNotInstalled indicates the yt-dlp binary was not found on PATH.
var ErrYtdlpNotInstalled = errors.New("fetch: yt-dlp not installed")

// wrapKind attaches a cause to one of the fixed error kinds.
func wrapKind(kind *Error, cause error) error {
	return &Error{Code: kind.Code, Status: kind.Status, Message: kind.Message, Err: cause}
}

// StrategyAttempt records the outcome of one strategy in a failed fetch.
type StrategyAttempt struct {
	// Strategy is the strategy name ("oembed", "player", "ytdlp", "dataapi").
	Strategy string
	// Err is the error that strategy produced.
	Err error
}

// AllStrategiesFailedError is returned when every configured strategy failed
// to fetch a video. It preserves each strategy's error for diagnostics.
// Use errors.As() to extract it:
//
//	var failed *fetch.AllStrategiesFailedError
//	if errors.As(err, &failed) {
//		for _, a := range failed.Attempts {
//			log.Printf("%s: %v", a.Strategy, a.Err)
//		}
//	}
type AllStrategiesFailedError struct {
	// VideoID is the video that could not be fetched.
	VideoID string
	// Attempts lists the per-strategy failures in the order they were tried.
	Attempts []StrategyAttempt
}

// Code and status for AllStrategiesFailedError. The failure is upstream of
// us, so it maps to a bad gateway rather than a client error.
const (
	AllStrategiesFailedCode   = "ALL_STRATEGIES_FAILED"
	AllStrategiesFailedStatus = http.StatusBadGateway
)

// Error returns a string representation listing every strategy failure.
func (e *AllStrategiesFailedError) Error() string {
	var sb strings.Builder
	sb.WriteString("fetch: all strategies failed for " + e.VideoID)
	for _, a := range e.Attempts {
		sb.WriteString("; ")
		sb.WriteString(a.Strategy)
		sb.WriteString(": ")
		sb.WriteString(a.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the per-strategy errors for use with errors.Is() and errors.As().
func (e *AllStrategiesFailedError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// HTTPStatus maps a fetch error to its HTTP status and code.
// It returns ok=false for errors outside the taxonomy.
func HTTPStatus(err error) (status int, code string, ok bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status, fe.Code, true
	}

	var failed *AllStrategiesFailedError
	if errors.As(err, &failed) {
		return AllStrategiesFailedStatus, AllStrategiesFailedCode, true
	}

	return 0, "", false
}

// isChainAbort reports whether err is permanent for the whole strategy chain.
// Not-found, unavailable, and invalid-URL conditions hold for every strategy,
// so trying the next one would only waste quota.
func isChainAbort(err error) bool {
	return errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrVideoNotFound) ||
		errors.Is(err, ErrVideoUnavailable)
}
