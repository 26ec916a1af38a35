package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"posgate/internal/infrastructure"
	"posgate/internal/registry"
)

// GateService orchestrates the check-in flow and the admin mutations over
// the registry. It owns no state of its own; every call is a short-lived
// unit of work against the store.
type GateService struct {
	registry      *registry.Registry
	companyGating bool
	logger        *slog.Logger
	metrics       *infrastructure.GateMetrics
}

// CheckInInput is the validated payload of a device check-in.
type CheckInInput struct {
	CompanyKey string
	DeviceID   string
	Metadata   registry.CheckInMetadata
}

// NewGateService creates the gate service. companyGating selects the
// deployment variant: when false, company rows are never consulted and
// every device is gated on its own status alone.
func NewGateService(reg *registry.Registry, companyGating bool, metrics *infrastructure.GateMetrics, logger *slog.Logger) *GateService {
	return &GateService{
		registry:      reg,
		companyGating: companyGating,
		logger:        logger.With(slog.String("service", "gate")),
		metrics:       metrics,
	}
}

// CheckIn runs the full check-in flow: company get-or-create (when the
// variant tracks companies), device get-or-create with metadata merge, and
// verdict evaluation against the freshly stored statuses.
func (s *GateService) CheckIn(ctx context.Context, input CheckInInput) (registry.Verdict, error) {
	// Callers outside the HTTP chain get a correlation ID of their own.
	ctx = infrastructure.EnsureTraceID(ctx)

	tracer := otel.Tracer("gate-service")
	ctx, span := tracer.Start(ctx, "gate.check_in",
		trace.WithAttributes(
			attribute.String("company_key", strings.TrimSpace(input.CompanyKey)),
			attribute.Bool("company_gating", s.companyGating),
		),
	)
	defer span.End()
	start := time.Now()

	var companyStatus string
	if s.companyGating {
		company, err := s.registry.EnsureCompany(ctx, input.CompanyKey)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			return registry.Verdict{}, err
		}
		companyStatus = company.Status
	}

	device, err := s.registry.RecordCheckIn(ctx, input.CompanyKey, input.DeviceID, input.Metadata)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return registry.Verdict{}, err
	}

	verdict := registry.Evaluate(companyStatus, device.Status)

	span.SetAttributes(
		attribute.Bool("verdict.authorized", verdict.Authorized),
		attribute.String("verdict.status", verdict.Status),
	)
	s.recordCheckInMetrics(ctx, verdict, time.Since(start))

	s.logger.InfoContext(ctx, "check-in evaluated",
		slog.String("company_key", device.CompanyKey),
		slog.String("device_id", device.DeviceID),
		slog.String("device_status", device.Status),
		slog.String("company_status", companyStatus),
		slog.Bool("authorized", verdict.Authorized),
		slog.String("verdict", verdict.Status),
	)
	return verdict, nil
}

// UpsertCompany creates or updates a company on behalf of an admin.
func (s *GateService) UpsertCompany(ctx context.Context, companyKey, name, status string) (*registry.Company, error) {
	company, err := s.registry.UpsertCompany(ctx, companyKey, name, status)
	if err != nil {
		return nil, err
	}
	s.recordAdminMetric(ctx, "company_upsert")
	return company, nil
}

// AuthorizeDevice grants a device the right to run. The device must already
// exist; authorization never creates rows.
func (s *GateService) AuthorizeDevice(ctx context.Context, companyKey, deviceID string) error {
	if err := s.registry.SetDeviceStatus(ctx, companyKey, deviceID, registry.DeviceAuthorized); err != nil {
		return err
	}
	s.recordAdminMetric(ctx, "device_authorize")
	return nil
}

// RevokeDevice withdraws a device's authorization. Revocation is not
// one-way; a later AuthorizeDevice restores the grant.
func (s *GateService) RevokeDevice(ctx context.Context, companyKey, deviceID string) error {
	if err := s.registry.SetDeviceStatus(ctx, companyKey, deviceID, registry.DeviceRevoked); err != nil {
		return err
	}
	s.recordAdminMetric(ctx, "device_revoke")
	return nil
}

// ListDevices returns a company's devices, most recently active first.
func (s *GateService) ListDevices(ctx context.Context, companyKey string) ([]registry.Device, error) {
	return s.registry.ListDevices(ctx, companyKey)
}

func (s *GateService) recordCheckInMetrics(ctx context.Context, verdict registry.Verdict, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.CheckInsTotal.Add(ctx, 1)
	s.metrics.CheckInDuration.Record(ctx, elapsed.Seconds())
	s.metrics.VerdictsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", verdict.Status),
		attribute.Bool("authorized", verdict.Authorized),
	))
}

func (s *GateService) recordAdminMetric(ctx context.Context, operation string) {
	if s.metrics == nil {
		return
	}
	s.metrics.AdminMutationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
