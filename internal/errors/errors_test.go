package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsSetStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
	}{
		{"not found", NotFound("program"), http.StatusNotFound},
		{"unauthorized", Unauthorized(""), http.StatusUnauthorized},
		{"duplicate", Duplicate("slug", "taken"), http.StatusConflict},
		{"validation", ValidationError("name", "required"), http.StatusUnprocessableEntity},
		{"invalid url", InvalidURL("website_url", "shortener"), http.StatusUnprocessableEntity},
		{"signature", InvalidSignature(), http.StatusBadRequest},
		{"too large", PayloadTooLarge("5MB"), http.StatusRequestEntityTooLarge},
		{"media type", UnsupportedMediaType("text/plain"), http.StatusUnsupportedMediaType},
		{"internal", InternalError(""), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.status, tt.err.Code.StatusCode())
		})
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: program not found", NotFound("program").Error())
	assert.Equal(t, "VALIDATION_ERROR: required (field: name)", ValidationError("name", "required").Error())
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("BOGUS").StatusCode())
}

func TestWithDetails(t *testing.T) {
	err := BadRequest("bad body").WithDetails("unexpected field \"foo\"")
	assert.Equal(t, "unexpected field \"foo\"", err.Details)
}
