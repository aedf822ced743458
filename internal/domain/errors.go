package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is an error that carries its own HTTP status.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrGenerationInFlight is returned when a node already has a generation streaming.
	ErrGenerationInFlight = errors.New("generation already in progress for this node")

	// ErrMissingCredential is returned when no API key is configured for the selected provider.
	ErrMissingCredential = errors.New("API key missing")
)

// NotFoundError reports a missing session or node. Sessions of other users are reported
// the same way.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string        { return e.Message }
func (e *NotFoundError) StatusCode() int      { return http.StatusNotFound }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TransportError wraps a failure of the text-generation backend (network, auth, rate limit,
// backend error response).
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) StatusCode() int {
	return http.StatusBadGateway
}
