package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/lemussistemas/salsa-hn-frontend/internal/utils"
)

const maxErrorBody = 4 << 10

// HTTPError is returned for every non-2xx response.
type HTTPError struct {
	Status int
	Method string
	Path   string
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Unwrap exposes the taxonomy sentinel for the status so callers can use
// errors.Is without inspecting Status.
func (e *HTTPError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return ierrors.ErrValidation
	case http.StatusUnauthorized:
		return ierrors.ErrUnauthenticated
	case http.StatusForbidden:
		return ierrors.ErrForbidden
	case http.StatusNotFound:
		return ierrors.ErrNotFound
	}
	return ierrors.ErrHTTP
}

// NetworkError is a transport failure or an unreadable 2xx response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ierrors.ErrNetwork, e.Err}
}

// FieldErrors decomposes a DRF style 400 payload into per-field messages.
// Object payloads map each key to its messages ("non_field_errors" and
// "detail" included); list or string payloads land under "non_field_errors".
// Anything else yields nil.
func FieldErrors(err error) []ierrors.FieldError {
	var he *HTTPError
	if !ierrors.As(err, &he) || he.Status != http.StatusBadRequest || len(he.Body) == 0 {
		return nil
	}
	var payload any
	if json.Unmarshal(he.Body, &payload) != nil {
		return nil
	}

	var fields []ierrors.FieldError
	switch p := payload.(type) {
	case map[string]any:
		for field, v := range p {
			for _, msg := range utils.ToStrings(v) {
				fields = append(fields, ierrors.FieldError{Field: field, Message: strings.TrimSpace(msg)})
			}
		}
	case []any, string:
		for _, msg := range utils.ToStrings(p) {
			fields = append(fields, ierrors.FieldError{Field: "non_field_errors", Message: msg})
		}
	}
	return fields
}

// AsValidationError converts a backend 400 into a ValidationError. Other
// errors are returned unchanged.
func AsValidationError(err error) error {
	fields := FieldErrors(err)
	if len(fields) == 0 {
		return err
	}
	return ierrors.NewValidationError(err, fields...)
}
