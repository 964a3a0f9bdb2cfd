package catalog

import "errors"

// ErrNotFound means the external catalog has no product with the given id.
// This is a permanent miss, not a retryable condition.
var ErrNotFound = errors.New("product not found in external catalog")

// TransientError wraps retryable failures: network errors, timeouts,
// upstream 5xx responses and undecodable payloads.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return "catalog " + e.Op + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable catalog failure
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
