// Package server provides the HTTP REST API for the NFA builder.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/nfa-builder/internal/db"
	"github.com/jonathan/nfa-builder/internal/pipeline"
	"github.com/jonathan/nfa-builder/internal/schemas"
	"github.com/jonathan/nfa-builder/internal/storage"
)

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid username or password"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates the requested resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnavailable indicates a feature whose backing service is not configured
type ErrUnavailable struct {
	Feature string
}

func (e *ErrUnavailable) Error() string {
	return e.Feature + " is not available: no database configured"
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		credErr       *ErrInvalidCredentials
		validationErr *ErrValidation
		notFoundErr   *ErrNotFound
		unavailable   *ErrUnavailable
		schemaErr     *schemas.ValidationError
		buildErr      *pipeline.BuildError
	)
	switch {
	case errors.As(err, &credErr):
		return http.StatusUnauthorized
	case errors.As(err, &validationErr), errors.As(err, &schemaErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr), errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &buildErr):
		return StatusForKind(buildErr.Kind)
	default:
		return http.StatusInternalServerError
	}
}

// StatusForKind maps a build failure kind to an HTTP status.
func StatusForKind(kind string) int {
	switch kind {
	case pipeline.KindValidation, pipeline.KindRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorType is the error_type reported for err in JSON bodies.
func errorType(err error) string {
	var (
		credErr     *ErrInvalidCredentials
		notFoundErr *ErrNotFound
		unavailable *ErrUnavailable
		schemaErr   *schemas.ValidationError
		validErr    *ErrValidation
		buildErr    *pipeline.BuildError
	)
	switch {
	case errors.As(err, &buildErr):
		return buildErr.Kind
	case errors.As(err, &validErr), errors.As(err, &schemaErr):
		return pipeline.KindValidation
	case errors.As(err, &credErr):
		return "unauthorized"
	case errors.As(err, &notFoundErr), errors.Is(err, db.ErrNotFound):
		return "not_found"
	case errors.As(err, &unavailable):
		return "unavailable"
	default:
		return pipeline.KindRequest
	}
}
