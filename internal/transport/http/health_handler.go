package http

import (
	"net/http"

	"github.com/go-chi/render"
)

// HealthHandler answers liveness probes and the service banner.
type HealthHandler struct {
	serviceName string
	version     string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(serviceName, version string) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version}
}

// Health handles GET /health and GET /healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// Root handles GET / with a service banner.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"ok":      true,
		"service": h.serviceName,
		"version": h.version,
	})
}
