package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/nfa-builder/internal/db"
	"github.com/jonathan/nfa-builder/internal/pipeline"
	"github.com/jonathan/nfa-builder/internal/schemas"
	"github.com/jonathan/nfa-builder/internal/storage"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     int
		wantType string
	}{
		{"credentials", &ErrInvalidCredentials{}, http.StatusUnauthorized, "unauthorized"},
		{"validation", &ErrValidation{Field: "status", Message: "oneof"}, http.StatusBadRequest, pipeline.KindValidation},
		{"schema", &schemas.ValidationError{Errors: []schemas.FieldError{{Field: "subject", Message: "required"}}}, http.StatusBadRequest, pipeline.KindValidation},
		{"not found", &ErrNotFound{Resource: "run", ID: "x"}, http.StatusNotFound, "not_found"},
		{"db not found", fmt.Errorf("run x: %w", db.ErrNotFound), http.StatusNotFound, "not_found"},
		{"invalid file name", fmt.Errorf("open: %w", storage.ErrInvalidName), http.StatusBadRequest, pipeline.KindRequest},
		{"unavailable", &ErrUnavailable{Feature: "history"}, http.StatusServiceUnavailable, "unavailable"},
		{"build validation", &pipeline.BuildError{Kind: pipeline.KindValidation, Message: "bad"}, http.StatusBadRequest, pipeline.KindValidation},
		{"build assembly", &pipeline.BuildError{Kind: pipeline.KindAssembly, Message: "bad"}, http.StatusInternalServerError, pipeline.KindAssembly},
		{"other", errors.New("boom"), http.StatusInternalServerError, pipeline.KindRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
			assert.Equal(t, tt.wantType, errorType(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "validation error: bad body", (&ErrValidation{Message: "bad body"}).Error())
	assert.Equal(t, "validation error: status - oneof", (&ErrValidation{Field: "status", Message: "oneof"}).Error())
	assert.Equal(t, "run not found: 42", (&ErrNotFound{Resource: "run", ID: "42"}).Error())
	assert.Equal(t, "history is not available: no database configured", (&ErrUnavailable{Feature: "history"}).Error())
}
