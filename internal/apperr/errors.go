// Package apperr defines the sentinel errors shared across helix packages.
// Callers wrap them with fmt.Errorf("...: %w", ...) and match with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotConnected means no calendar account is linked yet.
	ErrNotConnected = errors.New("calendar not connected")
	// ErrUpstream wraps failures of remote calendar providers.
	ErrUpstream = errors.New("upstream calendar error")
)
