package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrFetch matches every *Error with errors.Is.
var ErrFetch = errors.New("fetch failed")

// ErrorKind classifies fetch failures.
type ErrorKind string

const (
	KindNetwork    ErrorKind = "network"
	KindTimeout    ErrorKind = "timeout"
	KindHTTPStatus ErrorKind = "http_status"
	KindEmptyFeed  ErrorKind = "empty_feed"
	KindParse      ErrorKind = "parse"
)

// Error is a classified fetch failure for one URL.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	URL        string
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: HTTP %d for %s", e.Kind, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("fetch %s: %v for %s", e.Kind, e.Cause, e.URL)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrFetch) match any fetch error.
func (e *Error) Is(target error) bool { return target == ErrFetch }

// KindOf returns the kind of a fetch error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// classifyHTTPStatus creates an Error for a non-2xx response.
func classifyHTTPStatus(statusCode int, url string) *Error {
	return &Error{
		Kind:       KindHTTPStatus,
		StatusCode: statusCode,
		URL:        url,
		Cause:      fmt.Errorf("HTTP %d %s", statusCode, http.StatusText(statusCode)),
	}
}

// classifyNetworkError separates timeouts from other transport failures.
func classifyNetworkError(cause error, url string) *Error {
	kind := KindNetwork

	var netErr net.Error
	if errors.Is(cause, context.DeadlineExceeded) || (errors.As(cause, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}

	return &Error{Kind: kind, URL: url, Cause: cause}
}

// NewParseError wraps a payload parsing failure.
func NewParseError(cause error, url string) *Error {
	return &Error{Kind: KindParse, URL: url, Cause: cause}
}

// NewEmptyFeedError reports a feed that parsed but had no entries.
func NewEmptyFeedError(url string) *Error {
	return &Error{Kind: KindEmptyFeed, URL: url, Cause: errors.New("feed has no entries")}
}
