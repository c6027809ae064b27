package core

import "errors"

// Failure classes returned by CoreService. Callers match them with errors.Is.
var (
	ErrValidation       = errors.New("validation failure")
	ErrStorage          = errors.New("storage failure")
	ErrNotFound         = errors.New("not found")
	ErrUnsupportedMedia = errors.New("unsupported media")
)
