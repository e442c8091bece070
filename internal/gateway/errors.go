package gateway

import "errors"

// Every failed call maps onto exactly one of these, so callers branch on the
// kind of failure and never see transport details.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrAuthRequired = errors.New("authentication required")
	ErrBackend      = errors.New("backend error")
)
