package hugoapi

import (
	"errors"
	"fmt"
)

// ErrStreamInFlight is returned when a new stream is requested while a
// previous one is still open. Streams are serialized per client.
var ErrStreamInFlight = errors.New("hugoapi: a stream is already in flight")

// APIError is a non-success response from the backend.
type APIError struct {
	// Code is a stable machine-readable error code.
	Code string `json:"code,omitempty"`

	// Message is the human-readable error message.
	Message string `json:"message,omitempty"`

	// HTTPStatus is the HTTP status code of the response.
	HTTPStatus int `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("hugoapi: %s: %s (status %d)", e.Code, e.Message, e.HTTPStatus)
	}
	return fmt.Sprintf("hugoapi: %s (status %d)", e.Message, e.HTTPStatus)
}

// SessionCreateError reports that the backend rejected or failed a session
// create request. The caller decides whether to retry or surface it inline.
type SessionCreateError struct {
	Cause error
}

func (e *SessionCreateError) Error() string {
	return fmt.Sprintf("hugoapi: session create failed: %v", e.Cause)
}

func (e *SessionCreateError) Unwrap() error { return e.Cause }

// StreamProtocolError reports a malformed or aborted token stream. It is
// surfaced only when the blocking fallback also failed, or when tokens were
// already delivered and a silent fallback would duplicate them.
type StreamProtocolError struct {
	Reason string
	Cause  error
}

func (e *StreamProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("hugoapi: stream protocol error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("hugoapi: stream protocol error: %s", e.Reason)
}

func (e *StreamProtocolError) Unwrap() error { return e.Cause }
