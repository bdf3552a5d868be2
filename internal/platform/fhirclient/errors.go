package fhirclient

import (
	"errors"
	"fmt"

	"github.com/namaste/namaste/internal/platform/fhir"
)

var (
	// ErrNoToken is returned before any network I/O when no live token is
	// held. The caller must log in.
	ErrNoToken = errors.New("not authenticated: no token held")

	// ErrAuthExpired is returned when the server answered 401. The token
	// has already been invalidated.
	ErrAuthExpired = errors.New("authentication expired: server rejected the token")

	// ErrTimeout is wrapped by every failure caused by the call bound.
	ErrTimeout = errors.New("terminology request timed out")
)

// RequestError is a non-2xx, non-401 response from the terminology server.
type RequestError struct {
	Operation  string
	StatusCode int
	Status     string
	Message    string
	Outcome    *fhir.OperationOutcome
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: server returned %d: %s", e.Operation, e.StatusCode, e.Message)
}

// Retryable reports whether repeating the request may succeed.
func (e *RequestError) Retryable() bool {
	return e.StatusCode == 408 || e.StatusCode == 429 || e.StatusCode >= 500
}

// IsAuthError reports whether err requires the user to log in again.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNoToken) || errors.Is(err, ErrAuthExpired)
}
