package pump

import (
	"errors"
	"fmt"
)

var (
	// ErrStateNotFound is returned when the pump-state file does not exist.
	ErrStateNotFound = errors.New("pump state file not found")
	// ErrStateCorrupt is returned when the pump-state file cannot be parsed.
	ErrStateCorrupt = errors.New("pump state file is corrupt")
	// ErrInvalidState marks a stored pump state whose numbers cannot drive a transform.
	ErrInvalidState = errors.New("invalid pump state")
)

// BackendError wraps any failure raised by the pricing backend.
// The engine never retries; callers inspect it to decide whether to try again.
type BackendError struct {
	Op    string
	Token string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s for token %s: %v", e.Op, e.Token, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsBackendError reports whether err (or anything it wraps) is a *BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
