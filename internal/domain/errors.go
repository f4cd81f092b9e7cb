// Package domain holds the error taxonomy shared by every simulation component.
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors. Components wrap these with fmt.Errorf("...: %w", ...) and
// callers classify them with errors.Is.
var (
	// ErrInvalidIndex is returned when a qubit id lies outside the configured range.
	ErrInvalidIndex = errors.New("invalid qubit index")
	// ErrNotFound is returned for operations on a qubit or cache entry that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyRunning is returned by Start while the simulation is running.
	ErrAlreadyRunning = errors.New("simulation already running")
	// ErrNotRunning is returned by Stop while the simulation is idle.
	ErrNotRunning = errors.New("simulation not running")
	// ErrValidation is the parent of every ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError represents a malformed request or configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e ValidationError) Unwrap() error {
	return ErrValidation
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e ValidationErrors) Unwrap() error {
	return ErrValidation
}

// Invalid is a shorthand for constructing a ValidationError.
func Invalid(field, format string, args ...interface{}) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Code returns a stable machine-readable code for an error, used in API responses.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrInvalidIndex):
		return "INVALID_INDEX"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAlreadyRunning):
		return "ALREADY_RUNNING"
	case errors.Is(err, ErrNotRunning):
		return "NOT_RUNNING"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus maps an error to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch Code(err) {
	case "":
		return http.StatusOK
	case "VALIDATION_ERROR", "INVALID_INDEX":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "ALREADY_RUNNING", "NOT_RUNNING":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
