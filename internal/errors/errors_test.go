package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"posgate/internal/registry"
)

func TestNew(t *testing.T) {
	err := New(http.StatusTeapot, "TEAPOT", "short and stout")
	assert.Equal(t, http.StatusTeapot, err.StatusCode)
	assert.Equal(t, "TEAPOT", err.ErrorCode)
	assert.Equal(t, "short and stout", err.Error())
	assert.Nil(t, err.Details)
}

func TestValidation(t *testing.T) {
	err := Validation("company_key", "must not be empty")
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)

	detail, ok := err.Details.(FieldError)
	assert.True(t, ok)
	assert.Equal(t, "company_key", detail.Field)
}

func TestFromRegistry(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation error maps to 400",
			err:        &registry.ValidationError{Field: "device_id", Message: "must not be empty"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "not found maps to 404",
			err:        &registry.NotFoundError{Resource: "device", Key: "acme/pos-01"},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "storage error maps to opaque 500",
			err:        &registry.StorageError{Op: "check-in", Err: errors.New("disk full")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
		{
			name:       "unknown error maps to opaque 500",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromRegistry(tt.err)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
		})
	}
}

func TestFromRegistry_HidesStorageDetail(t *testing.T) {
	apiErr := FromRegistry(&registry.StorageError{Op: "check-in", Err: errors.New("disk full")})
	assert.NotContains(t, apiErr.Message, "disk full")
}

func TestFromRegistry_WrappedErrors(t *testing.T) {
	wrapped := &registry.StorageError{
		Op:  "admin",
		Err: &registry.NotFoundError{Resource: "device", Key: "acme/ghost"},
	}
	// As-based matching sees through the wrapper; not-found wins.
	apiErr := FromRegistry(wrapped)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
