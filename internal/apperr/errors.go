// Package apperr defines the error kinds returned by the record stores.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")
)

// Error is a tagged failure: Kind is one of the sentinels above and Msg is
// the caller-facing reason.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Unwrap lets errors.Is match the kind sentinel.
func (e *Error) Unwrap() error { return e.Kind }

// NotFound returns a NotFound error for the named record.
func NotFound(record, id string) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf("%s with id:%s not found", record, id)}
}

// Unauthorized returns an Unauthorized error for the named record kind.
func Unauthorized(record string) error {
	return &Error{Kind: ErrUnauthorized, Msg: "You are not authorized to access " + record}
}

// Invalid returns a ValidationError. The cause is kept out of the message.
func Invalid() error {
	return &Error{Kind: ErrValidation, Msg: "Missing or invalid input data"}
}

// TooLarge returns a ValidationError for a record that no longer fits the
// store's size limits.
func TooLarge(record string) error {
	return &Error{Kind: ErrValidation, Msg: record + " exceeds the record size limit"}
}

// Tag returns the wire tag for err's kind, or "internal" when err carries
// none of the known kinds.
func Tag(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}
