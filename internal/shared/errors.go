package shared

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// SafeError carries a message that may be shown to the user verbatim.
type SafeError struct {
	Message string
	Status  int
	Err     error
}

func (e *SafeError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *SafeError) Unwrap() error { return e.Err }

// NewSafeError wraps err with a user-facing message.
func NewSafeError(status int, message string, err error) *SafeError {
	return &SafeError{Message: message, Status: status, Err: err}
}

// UserSafeMessage returns text that is safe to render for err. Anything that is not
// a SafeError is reported generically.
func UserSafeMessage(err error) string {
	var safe *SafeError
	if errors.As(err, &safe) {
		return safe.Message
	}
	if errors.Is(err, ErrNotFound) {
		return "The requested record no longer exists."
	}
	return "Something went wrong. Please try again."
}

// StatusCode maps err to an HTTP status.
func StatusCode(err error) int {
	var safe *SafeError
	if errors.As(err, &safe) && safe.Status != 0 {
		return safe.Status
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
