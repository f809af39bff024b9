package domain

import "errors"

// Sentinel errors shared by the stores, the chat services and the HTTP layer.
var (
	// ErrNotFound: the employee, record or conversation does not exist.
	ErrNotFound = errors.New("domain: not found") //nolint:gochecknoglobals // sentinel error
	// ErrConflict: a concurrent writer saved the conversation first.
	ErrConflict = errors.New("domain: conflict") //nolint:gochecknoglobals // sentinel error
	// ErrForbidden: the caller may not act on another employee's data.
	ErrForbidden = errors.New("domain: forbidden") //nolint:gochecknoglobals // sentinel error
	// ErrInvalidInput: the request is malformed.
	ErrInvalidInput = errors.New("domain: invalid input") //nolint:gochecknoglobals // sentinel error
)
