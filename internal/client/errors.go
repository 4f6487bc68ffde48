package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidResponse = errors.New("invalid response from backend")
)

// APIError is a non-success answer from a backend collaborator
type APIError struct {
	Collaborator string
	StatusCode   int
	Message      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Collaborator, e.StatusCode, e.Message)
}

// Is lets callers match 404 answers against ErrNotFound
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Temporary reports whether retrying the call may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}
