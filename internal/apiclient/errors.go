package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidCredentials indicates the backend rejected a username/password pair.
	ErrInvalidCredentials = errors.New("apiclient: invalid credentials")
	// ErrUnauthorized indicates the backend rejected a bearer token.
	ErrUnauthorized = errors.New("apiclient: unauthorized")
	// ErrSessionExpired is returned to callers once an authorized call hit a 401 and
	// the session has been logged out.
	ErrSessionExpired = errors.New("apiclient: session expired")
	// ErrUnavailable wraps transport failures.
	ErrUnavailable = errors.New("apiclient: backend unavailable")
	// ErrMalformedResponse indicates a 2xx body that could not be decoded.
	ErrMalformedResponse = errors.New("apiclient: malformed response")
)

// StatusError describes an unexpected non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("apiclient: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("apiclient: %s %s: %d", e.Method, e.Path, e.StatusCode)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// errorMessage extracts a backend supplied message from an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, msg := range []string{payload.Message, payload.Error, payload.Detail} {
			if msg = strings.TrimSpace(msg); msg != "" {
				return msg
			}
		}
	}
	return ""
}
