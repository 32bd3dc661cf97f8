package kafka

import (
	"errors"

	"service-courier-match/internal/apperr"
)

// PermanentError wraps a failure that redelivery cannot fix.
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string {
	if e.Err == nil {
		return "permanent kafka error"
	}
	return "permanent: " + e.Err.Error()
}

func (e PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not worth redelivering. Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return PermanentError{Err: err}
}

// IsPermanent reports whether a handler error should skip the message instead
// of ending the session. Invalid input stays invalid on every redelivery.
func IsPermanent(err error) bool {
	var perm PermanentError
	if errors.As(err, &perm) {
		return true
	}
	return errors.Is(err, apperr.ErrInvalid) || errors.Is(err, apperr.ErrForbidden)
}
