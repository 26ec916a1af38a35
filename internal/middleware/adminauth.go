package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "posgate/internal/errors"
)

// AdminTokenHeader carries the shared admin secret on management requests.
const AdminTokenHeader = "X-Admin-Token"

// AdminAuth gates admin endpoints behind the shared static token.
//
// An empty configured token fails closed: no request passes until a secret
// is set. Rejections are uniform 401s so callers cannot probe whether the
// target resource exists.
type AdminAuth struct {
	token  string
	logger *slog.Logger
}

// NewAdminAuth creates the admin token middleware.
func NewAdminAuth(token string, logger *slog.Logger) *AdminAuth {
	if token == "" {
		logger.Warn("admin token is empty; all admin requests will be rejected")
	}
	return &AdminAuth{
		token:  token,
		logger: logger.With(slog.String("component", "admin_auth")),
	}
}

// Handler validates the X-Admin-Token header before admitting the request.
func (a *AdminAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		supplied := r.Header.Get(AdminTokenHeader)

		if a.token == "" || supplied == "" ||
			subtle.ConstantTimeCompare([]byte(supplied), []byte(a.token)) != 1 {
			a.logger.WarnContext(r.Context(), "admin request rejected",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Bool("token_supplied", supplied != ""),
			)
			render.Render(w, r, apierrors.ErrUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
