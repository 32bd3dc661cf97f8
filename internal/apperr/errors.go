package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrConflict indicates a uniqueness or state conflict (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller is not a party of the resource.
var ErrForbidden = errors.New("forbidden")

// ErrVersionConflict signals a lost compare-and-swap. It is transient and
// retried internally by the services.
var ErrVersionConflict = errors.New("version conflict")

// ErrCapacityUnavailable is returned by the proposer when a catalog entry
// changed between scoring and reservation.
var ErrCapacityUnavailable = errors.New("capacity unavailable")

// ErrUnauthorized is returned when the caller identity is missing or invalid.
var ErrUnauthorized = errors.New("unauthorized")
