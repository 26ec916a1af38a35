package http

import (
	"embed"
	"net/http"
)

// The admin panel is an opaque static asset; the core exposes no contract
// to it beyond serving these bytes.
//
//go:embed assets/admin.html
var panelFS embed.FS

// PanelHandler serves the embedded admin management page.
type PanelHandler struct{}

// NewPanelHandler creates a new panel handler.
func NewPanelHandler() *PanelHandler {
	return &PanelHandler{}
}

// Panel handles GET /admin-panel.
func (h *PanelHandler) Panel(w http.ResponseWriter, r *http.Request) {
	page, err := panelFS.ReadFile("assets/admin.html")
	if err != nil {
		http.Error(w, "admin panel unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}
