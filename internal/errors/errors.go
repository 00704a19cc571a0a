package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common error types for the academy client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrSessionExpired     = errors.New("session expired, login required")

	// Request errors
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrHTTP       = errors.New("unexpected http status")
	ErrNetwork    = errors.New("network error")

	// Attendance errors
	ErrEmptyRoster    = errors.New("roster has no enrolled students")
	ErrRosterClosed   = errors.New("roster already committed or discarded")
	ErrUnknownStudent = errors.New("student is not on the roster")
	ErrStatusPending  = errors.New("attendance recorded, session status pending")
)

// FieldError is a validation failure on one named field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries field level violations, reported either by the
// local pre-flight checks or by a backend 400 payload.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	sort.SliceStable(flds, func(i, j int) bool { return flds[i].Field < flds[j].Field })
	return &ValidationError{Err: err, Fields: flds}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Err.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return e.Err.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Field returns the messages reported for field, if any.
func (e *ValidationError) Field(name string) []string {
	var msgs []string
	for _, f := range e.Fields {
		if f.Field == name {
			msgs = append(msgs, f.Message)
		}
	}
	return msgs
}

// Message renders err for display. Validation errors produce one line per
// field instead of the raw payload.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) && len(ve.Fields) > 0 {
		lines := make([]string, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			lines = append(lines, fmt.Sprintf("%s: %s", f.Field, f.Message))
		}
		return strings.Join(lines, "\n")
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Usuario o contraseña incorrectos."
	case errors.Is(err, ErrSessionExpired):
		return "Tu sesión expiró, inicia sesión de nuevo."
	case errors.Is(err, ErrUnauthenticated):
		return "No has iniciado sesión."
	case errors.Is(err, ErrForbidden):
		return "No tienes permiso para esta acción."
	case errors.Is(err, ErrNotFound):
		return "El recurso solicitado no existe."
	case errors.Is(err, ErrEmptyRoster):
		return "La sesión no tiene alumnos matriculados."
	case errors.Is(err, ErrUnknownStudent):
		return "El alumno no está en la lista de esta sesión."
	case errors.Is(err, ErrRosterClosed):
		return "La lista ya fue enviada."
	case errors.Is(err, ErrStatusPending):
		return "La asistencia se registró, pero la sesión no se pudo marcar como dictada."
	case errors.Is(err, ErrNetwork):
		return "No se pudo contactar al servidor."
	}
	return err.Error()
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
