// Package chaterr defines the error taxonomy shared by the chat services and
// the HTTP/socket handlers. Handlers match these with errors.Is and translate
// them into an error event or an HTTP status; everything else is treated as an
// internal failure.
package chaterr

import "errors"

var (
	// ErrNotFound means the chat or message id did not resolve.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller is authenticated but not authorized for the target.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation means the input was malformed or empty.
	ErrValidation = errors.New("invalid input")
	// ErrConflict means the action is not permitted given the object's state,
	// e.g. editing a soft-deleted message.
	ErrConflict = errors.New("conflict")
)
