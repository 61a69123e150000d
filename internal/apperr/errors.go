// Package apperr holds the sentinel errors shared by the service, index and
// transport layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidKind   = errors.New("invalid entity kind")
	ErrInvalidEntity = errors.New("invalid entity")
)
