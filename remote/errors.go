package remote

import (
	"fmt"
	"net/http"
)

// NetworkError means no HTTP response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is a 401/403 answer, or a token that could not be obtained
// (Status 0).
type AuthError struct {
	Op     string
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: not authenticated: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, http.StatusText(e.Status))
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteError is any other non-2xx answer.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}
