package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// NetworkError means the request could not be sent or no response arrived,
// including timeouts.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the request exceeded its deadline.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// BackendError is a non-2xx response.
type BackendError struct {
	Op      string
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Op, e.Status, e.Message)
}

// NotFound reports a 404 response.
func (e *BackendError) NotFound() bool { return e.Status == http.StatusNotFound }

// MalformedResponseError means the body did not match the expected shape.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Describe turns a client error into a short message suitable for the UI.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var netErr *NetworkError
	var backendErr *BackendError
	var malformed *MalformedResponseError
	switch {
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return "Backend did not respond in time"
		}
		if errors.Is(err, context.Canceled) {
			return "Request cancelled"
		}
		return "Backend unreachable"
	case errors.As(err, &backendErr):
		if backendErr.Message != "" {
			return fmt.Sprintf("Backend error %d: %s", backendErr.Status, backendErr.Message)
		}
		return fmt.Sprintf("Backend error %d %s", backendErr.Status, http.StatusText(backendErr.Status))
	case errors.As(err, &malformed):
		return "Unexpected response from backend"
	}
	return err.Error()
}
