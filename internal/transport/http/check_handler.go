package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "posgate/internal/errors"
	"posgate/internal/registry"
	"posgate/internal/services"
)

var validate = validator.New()

// CheckHandler handles device check-in HTTP requests.
type CheckHandler struct {
	service *services.GateService
	logger  *slog.Logger
}

// NewCheckHandler creates a new check-in handler.
func NewCheckHandler(service *services.GateService, logger *slog.Logger) *CheckHandler {
	return &CheckHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "check")),
	}
}

// CheckRequest is the check-in payload a terminal submits. The ts field is
// accepted for compatibility but ignored; row timestamps come from the
// server clock.
type CheckRequest struct {
	CompanyKey    string `json:"company_key" validate:"required"`
	DeviceID      string `json:"device_id" validate:"required"`
	Hostname      string `json:"hostname,omitempty"`
	PCName        string `json:"pc_name,omitempty"`
	RequesterName string `json:"requester_name,omitempty"`
	Establishment string `json:"establishment,omitempty"`
	TS            string `json:"ts,omitempty"`
}

// Bind implements the render.Binder interface for check-in validation.
func (c *CheckRequest) Bind(r *http.Request) error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errors.New("company_key and device_id are required")
		}
		return err
	}
	return nil
}

// Routes returns a chi router for the public check-in API.
func (h *CheckHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/check", h.Check)
	return r
}

// Check handles POST /api/check.
func (h *CheckHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := new(CheckRequest)
	if err := render.Bind(r, req); err != nil {
		h.logger.WarnContext(ctx, "check-in request rejected",
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	verdict, err := h.service.CheckIn(ctx, services.CheckInInput{
		CompanyKey: req.CompanyKey,
		DeviceID:   req.DeviceID,
		Metadata: registry.CheckInMetadata{
			Hostname:      req.Hostname,
			PCName:        req.PCName,
			RequesterName: req.RequesterName,
			Establishment: req.Establishment,
		},
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.JSON(w, r, verdict)
}

func (h *CheckHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierrors.FromRegistry(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "check-in failed",
			slog.String("error", err.Error()))
	}
	render.Render(w, r, apiErr)
}
