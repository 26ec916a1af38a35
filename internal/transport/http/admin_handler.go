package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "posgate/internal/errors"
	"posgate/internal/registry"
	"posgate/internal/services"
)

// AdminHandler handles management HTTP requests. The router mounts it
// behind the admin-token middleware; handlers assume the caller is already
// authenticated.
type AdminHandler struct {
	service *services.GateService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(service *services.GateService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "admin")),
	}
}

// CompanyRequest is the admin company upsert payload.
type CompanyRequest struct {
	CompanyKey string `json:"company_key"`
	Name       string `json:"name,omitempty"`
	Status     string `json:"status,omitempty"`
}

// Bind implements the render.Binder interface.
func (c *CompanyRequest) Bind(r *http.Request) error {
	if strings.TrimSpace(c.CompanyKey) == "" {
		return errors.New("company_key is required")
	}
	return nil
}

// DeviceRequest identifies a device for an admin status mutation.
type DeviceRequest struct {
	CompanyKey string `json:"company_key"`
	DeviceID   string `json:"device_id"`
}

// Bind implements the render.Binder interface.
func (d *DeviceRequest) Bind(r *http.Request) error {
	if strings.TrimSpace(d.CompanyKey) == "" || strings.TrimSpace(d.DeviceID) == "" {
		return errors.New("company_key and device_id are required")
	}
	return nil
}

// CompanyResponse acknowledges a company upsert.
type CompanyResponse struct {
	OK         bool   `json:"ok"`
	CompanyKey string `json:"company_key"`
	Status     string `json:"status"`
}

// DeviceListResponse wraps a company's device listing.
type DeviceListResponse struct {
	CompanyKey string            `json:"company_key"`
	Devices    []registry.Device `json:"devices"`
}

// Routes returns a chi router for the admin endpoints.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/company", h.UpsertCompany)
	r.Post("/device/authorize", h.AuthorizeDevice)
	r.Post("/device/revoke", h.RevokeDevice)
	r.Get("/devices", h.ListDevices)
	return r
}

// UpsertCompany handles POST /admin/company.
func (h *AdminHandler) UpsertCompany(w http.ResponseWriter, r *http.Request) {
	req := new(CompanyRequest)
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	company, err := h.service.UpsertCompany(r.Context(), req.CompanyKey, req.Name, req.Status)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, CompanyResponse{
		OK:         true,
		CompanyKey: company.CompanyKey,
		Status:     company.Status,
	})
}

// AuthorizeDevice handles POST /admin/device/authorize.
func (h *AdminHandler) AuthorizeDevice(w http.ResponseWriter, r *http.Request) {
	h.mutateDevice(w, r, h.service.AuthorizeDevice)
}

// RevokeDevice handles POST /admin/device/revoke.
func (h *AdminHandler) RevokeDevice(w http.ResponseWriter, r *http.Request) {
	h.mutateDevice(w, r, h.service.RevokeDevice)
}

func (h *AdminHandler) mutateDevice(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, companyKey, deviceID string) error) {
	req := new(DeviceRequest)
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := op(r.Context(), req.CompanyKey, req.DeviceID); err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]bool{"ok": true})
}

// ListDevices handles GET /admin/devices?company_key=...
func (h *AdminHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	companyKey := strings.TrimSpace(r.URL.Query().Get("company_key"))
	if companyKey == "" {
		render.Render(w, r, apierrors.Validation("company_key", "query parameter is required"))
		return
	}

	devices, err := h.service.ListDevices(r.Context(), companyKey)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, DeviceListResponse{
		CompanyKey: companyKey,
		Devices:    devices,
	})
}

func (h *AdminHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierrors.FromRegistry(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "admin operation failed",
			slog.String("error", err.Error()))
	}
	render.Render(w, r, apiErr)
}
