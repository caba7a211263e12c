// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"errors"
	"fmt"
)

// ErrSessionExpired indicates the booking session was invalidated and the
// renewal attempt could not restore it. Callers may try one explicit manual
// renewal before giving up on the resource for the cycle.
var ErrSessionExpired = errors.New("session expired and could not be renewed")

// StatusError reports an unexpected transport or application status from the
// booking service. It is not retried by the client; the monitor loop decides
// whether to retry, log, or skip the location for the cycle.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code from server: %d", e.Code)
}

// IsStatusError reports whether err carries a StatusError and returns it.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
