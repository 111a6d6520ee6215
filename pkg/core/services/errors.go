package services

import (
	"errors"
	"fmt"

	"github.com/jakechorley/volunteer-portal/pkg/core/model"
)

// Error kinds. Use errors.Is against these; the message shown to callers
// comes from the wrapping RequestError.
var (
	ErrMissingFields     = errors.New("missing required fields")
	ErrMissingMinutes    = errors.New("minutes spent is required")
	ErrVolunteerNotFound = errors.New("volunteer not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrSessionNotFound   = errors.New("attendance session not found")
	ErrNoActiveSession   = errors.New("no active check-in")
	ErrInvalidAction     = errors.New("invalid action")
	ErrInvalidStatus     = errors.New("invalid status")
)

// RequestError carries a caller-facing message for one of the error kinds above
type RequestError struct {
	Kind    error
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Kind
}

func requestError(kind error, format string, args ...any) error {
	return &RequestError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrongOrganizationError is returned by redirect-mode resolution when the code
// was found in the partition the caller did not ask for.
type WrongOrganizationError struct {
	Code      string
	Requested model.Org
	Correct   model.Org
}

func (e *WrongOrganizationError) Error() string {
	return fmt.Sprintf("Code '%s' belongs to %s, not %s", e.Code, e.Correct, e.Requested)
}
