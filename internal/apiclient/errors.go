package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
)

// Sentinels matched with errors.Is against an *Error.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrNetwork      = errors.New("network error")
	// ErrAuthRequired is returned without a network call when an authenticated
	// endpoint is used while no token is stored. It also matches ErrUnauthorized.
	ErrAuthRequired = errors.New("authorization required")
)

// Error is the normalized failure of a backend call.
type Error struct {
	// Message is the human readable reason.
	Message string `json:"message"`
	// Status is the HTTP status, 0 when no response was received.
	Status int `json:"status,omitempty"`
	// Body is the raw response body, if any.
	Body json.RawMessage `json:"data,omitempty"`

	cause        error
	authRequired bool
	notified     atomic.Bool
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

// Unwrap returns the transport error, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is maps the error onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuthRequired:
		return e.authRequired
	case ErrUnauthorized:
		return e.authRequired || e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrValidation:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case ErrNetwork:
		return e.Status == 0 && !e.authRequired
	}
	return false
}

// ServerMessage returns the message or error field of the response body,
// empty when the backend sent neither.
func (e *Error) ServerMessage() string {
	return messageFrom(e.Body, "")
}

// MarkNotified records that the error has been shown to the user.
func (e *Error) MarkNotified() { e.notified.Store(true) }

// Notified reports whether err (or an *Error it wraps) was already shown.
func Notified(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.notified.Load()
	}
	return false
}

func authRequiredError() *Error {
	return &Error{Message: "authorization required: please login", authRequired: true}
}

// messageFrom picks the message field of a JSON body, then its error field,
// then fallback.
func messageFrom(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}

func statusError(status int, body []byte) *Error {
	e := &Error{
		Status:  status,
		Message: messageFrom(body, fmt.Sprintf("request failed with status code %d", status)),
	}
	if json.Valid(body) {
		e.Body = json.RawMessage(body)
	}
	return e
}

func transportError(err error) *Error {
	return &Error{Message: err.Error(), cause: err}
}
