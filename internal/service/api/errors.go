package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork wraps failures that happened before any response arrived.
	ErrNetwork = errors.New("network error")
	// ErrUnauthorized matches 401/403 responses.
	ErrUnauthorized = errors.New("not authenticated")
	// ErrUnexpectedBody is returned when a response has the wrong shape.
	ErrUnexpectedBody = errors.New("unexpected response body")
)

// StatusError is a non-2xx response. Detail carries the server's "detail"
// field when it is a plain string.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrUnauthorized) match auth rejections.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// DetailOf returns the server-supplied detail of err, if any.
func DetailOf(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Detail
	}
	return ""
}
