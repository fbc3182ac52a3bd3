// Package apperr defines the error taxonomy shared by the service layer and
// the HTTP handlers. Services wrap these sentinels with context via %w; the
// transport maps them to status codes with errors.Is.
package apperr

import "errors"

var (
	// ErrInvalidInput — a required field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound — the referenced channel, message, or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden — the caller is authenticated but lacks the required
	// relationship (owner or member) to the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict — the operation violates a state invariant: duplicate join,
	// leave while owner, leave while not a member.
	ErrConflict = errors.New("conflict")
)
