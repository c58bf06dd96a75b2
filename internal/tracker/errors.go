package tracker

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Adapters wrap these with %w.
var (
	ErrMalformedInput     = errors.New("malformed input")
	ErrNotFound           = errors.New("issue not found")
	ErrAlreadyTerminal    = errors.New("issue is already completed")
	ErrInvalidAssignee    = errors.New("invalid assignee")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnknownAction      = errors.New("unknown action")
)

// ErrNotInitialized is returned when a backend is used before it has the
// configuration it needs.
type ErrNotInitialized struct {
	Tracker string
	Reason  string
}

func (e *ErrNotInitialized) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s backend not initialized", e.Tracker)
	}
	return fmt.Sprintf("%s backend not initialized: %s", e.Tracker, e.Reason)
}

// Unwrap lets errors.Is match ErrBackendUnavailable.
func (e *ErrNotInitialized) Unwrap() error { return ErrBackendUnavailable }

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Unavailable wraps err as ErrBackendUnavailable unless it already carries a kind.
// Context deadline errors are kept so callers can report the timeout.
func Unavailable(backend string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%s: %w: %w", backend, ErrBackendUnavailable, err)
}

// Kind returns the error kind carried by err, or nil if it carries none.
func Kind(err error) error {
	for _, kind := range []error{
		ErrMalformedInput,
		ErrNotFound,
		ErrAlreadyTerminal,
		ErrInvalidAssignee,
		ErrBackendUnavailable,
		ErrUnknownAction,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrBackendUnavailable
	}
	return nil
}

// UserError is an error of a given kind whose message is shown to callers as is.
type UserError struct {
	Kind    error
	Message string
}

func (e *UserError) Error() string { return e.Message }

// Unwrap exposes the kind to errors.Is.
func (e *UserError) Unwrap() error { return e.Kind }

// NewUserError returns a UserError of kind with a formatted message.
func NewUserError(kind error, format string, args ...any) error {
	return &UserError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// UserMessage returns the caller-facing message carried by err, if any.
func UserMessage(err error) (string, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message, true
	}
	return "", false
}
