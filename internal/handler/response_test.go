package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sakif/project-showcase/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{"validation", apperror.ValidationFailed("name", "project name is required"), http.StatusBadRequest, "validation_error", "project name is required"},
		{"unauthorized", apperror.Unauthorized("sign in"), http.StatusUnauthorized, "unauthorized", "sign in"},
		{"forbidden", apperror.Forbidden("not yours"), http.StatusForbidden, "forbidden", "not yours"},
		{"not found wrapped", fmt.Errorf("service: %w", apperror.NotFound("project", "abc")), http.StatusNotFound, "not_found", "project not found with id abc"},
		{"conflict", apperror.AlreadyExists("already voted"), http.StatusConflict, "conflict", "already voted"},
		{"precondition", apperror.PreconditionFailed("project", "abc"), http.StatusPreconditionFailed, "precondition_failed", "project abc was modified concurrently"},
		{"unknown error hides details", errors.New("sqlite: disk I/O error"), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}
