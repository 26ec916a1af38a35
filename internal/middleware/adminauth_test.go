package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		configured string
		supplied   string
		wantStatus int
	}{
		{
			name:       "matching token admits",
			configured: "s3cret",
			supplied:   "s3cret",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong token rejected",
			configured: "s3cret",
			supplied:   "wrong",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing token rejected",
			configured: "s3cret",
			supplied:   "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty secret fails closed",
			configured: "",
			supplied:   "anything",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty secret rejects empty header too",
			configured: "",
			supplied:   "",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAdminAuth(tt.configured, logger)
			handler := auth.Handler(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/admin/devices", nil)
			if tt.supplied != "" {
				req.Header.Set(AdminTokenHeader, tt.supplied)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}
