package services

import "errors"

// Error kinds raised at the service boundary. Handlers translate them
// to HTTP status codes; no retries anywhere, every failure surfaces on
// first occurrence.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
)
