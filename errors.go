package whatsthat

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds. Every error returned by the client matches exactly one of
// these with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrNetwork      = errors.New("network error")
	ErrServer       = errors.New("server error")
)

// ErrNotAuthor is returned when editing or deleting someone else's message.
var ErrNotAuthor = &ValidationError{Field: "message", Message: "only the author can change this message"}

// APIError describes a failed round trip.
type APIError struct {
	Kind   error
	Op     string
	Method string
	Path   string
	Status int
	Err    error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s %s: %s (%d)", e.Op, e.Method, e.Path, e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s: %s: %v", e.Op, e.Method, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %s", e.Op, e.Method, e.Path, e.Kind)
}

func (e *APIError) Is(target error) bool {
	return target == e.Kind
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError is raised before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// kindForStatus maps a non-success status to a failure kind.
func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return ErrServer
}

// kindName is the label used in logs and metrics.
func kindName(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNetwork):
		return "network"
	}
	return "server"
}

// UserMessage is the banner text for an error. Validation messages are shown
// as-is; everything else gets a generic line.
func UserMessage(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrNetwork):
		return "Network unavailable. Please try again."
	}
	return "Something went wrong. Please try again."
}
