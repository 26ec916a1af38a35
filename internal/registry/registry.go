package registry

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Registry is the durable record of companies and devices. Every operation
// is a single transactional statement (or statement pair inside one
// transaction) against the store; there is no in-memory caching layer, so
// concurrent callers are serialized only by the database itself.
type Registry struct {
	db     *bun.DB
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Registry over an initialized database handle.
func New(db *bun.DB, logger *slog.Logger) *Registry {
	return &Registry{
		db:     db,
		logger: logger.With(slog.String("component", "registry")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordCheckIn performs the idempotent get-or-create for a device check-in.
//
// A new device is inserted with status PENDING and both timestamps set to
// now. An existing device keeps its status, merges metadata fill-if-empty
// (first non-empty write wins per field) and refreshes last_seen. The whole
// write is one INSERT .. ON CONFLICT DO UPDATE statement so racing check-ins
// for the same key cannot interleave into a corrupted row.
func (r *Registry) RecordCheckIn(ctx context.Context, companyKey, deviceID string, meta CheckInMetadata) (*Device, error) {
	companyKey = strings.TrimSpace(companyKey)
	deviceID = strings.TrimSpace(deviceID)
	if companyKey == "" {
		return nil, &ValidationError{Field: "company_key", Message: "must not be empty"}
	}
	if deviceID == "" {
		return nil, &ValidationError{Field: "device_id", Message: "must not be empty"}
	}

	now := r.now()
	dev := &Device{
		CompanyKey:    companyKey,
		DeviceID:      deviceID,
		Hostname:      strings.TrimSpace(meta.Hostname),
		PCName:        strings.TrimSpace(meta.PCName),
		RequesterName: strings.TrimSpace(meta.RequesterName),
		Establishment: strings.TrimSpace(meta.Establishment),
		Status:        DevicePending,
		FirstSeen:     now,
		LastSeen:      now,
	}

	// Inside DO UPDATE, unqualified columns refer to the stored row and
	// excluded.* to the incoming values: the stored value survives unless
	// it is currently blank. Status and first_seen are never touched.
	_, err := r.db.NewInsert().
		Model(dev).
		On("CONFLICT (company_key, device_id) DO UPDATE").
		Set("hostname = CASE WHEN coalesce(hostname, '') = '' THEN excluded.hostname ELSE hostname END").
		Set("pc_name = CASE WHEN coalesce(pc_name, '') = '' THEN excluded.pc_name ELSE pc_name END").
		Set("requester_name = CASE WHEN coalesce(requester_name, '') = '' THEN excluded.requester_name ELSE requester_name END").
		Set("establishment = CASE WHEN coalesce(establishment, '') = '' THEN excluded.establishment ELSE establishment END").
		Set("last_seen = excluded.last_seen").
		Exec(ctx)
	if err != nil {
		return nil, &StorageError{Op: "device check-in", Err: err}
	}

	stored := new(Device)
	err = r.db.NewSelect().
		Model(stored).
		Where("company_key = ? AND device_id = ?", companyKey, deviceID).
		Scan(ctx)
	if err != nil {
		return nil, &StorageError{Op: "device check-in read-back", Err: err}
	}

	r.logger.DebugContext(ctx, "device check-in recorded",
		slog.String("company_key", companyKey),
		slog.String("device_id", deviceID),
		slog.String("status", stored.Status),
	)
	return stored, nil
}

// EnsureCompany creates the company as ACTIVE if it has never been seen and
// returns the stored row. It is invoked on the check-in path, so an unknown
// tenant's first contact implicitly registers it.
func (r *Registry) EnsureCompany(ctx context.Context, companyKey string) (*Company, error) {
	companyKey = strings.TrimSpace(companyKey)
	if companyKey == "" {
		return nil, &ValidationError{Field: "company_key", Message: "must not be empty"}
	}

	comp := &Company{
		CompanyKey: companyKey,
		Name:       companyKey,
		Status:     CompanyActive,
		CreatedAt:  r.now(),
	}
	_, err := r.db.NewInsert().
		Model(comp).
		On("CONFLICT (company_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, &StorageError{Op: "company get-or-create", Err: err}
	}

	stored := new(Company)
	err = r.db.NewSelect().
		Model(stored).
		Where("company_key = ?", companyKey).
		Scan(ctx)
	if err != nil {
		return nil, &StorageError{Op: "company read-back", Err: err}
	}
	return stored, nil
}

// UpsertCompany creates or updates a company from an admin request. An empty
// name defaults to the company key; an empty status defaults to ACTIVE. A
// supplied status outside {ACTIVE, BLOCKED} is rejected.
func (r *Registry) UpsertCompany(ctx context.Context, companyKey, name, status string) (*Company, error) {
	companyKey = strings.TrimSpace(companyKey)
	if companyKey == "" {
		return nil, &ValidationError{Field: "company_key", Message: "must not be empty"}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = companyKey
	}

	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		status = CompanyActive
	}
	if !ValidCompanyStatus(status) {
		return nil, &ValidationError{Field: "status", Message: "must be ACTIVE or BLOCKED"}
	}

	comp := &Company{
		CompanyKey: companyKey,
		Name:       name,
		Status:     status,
		CreatedAt:  r.now(),
	}
	_, err := r.db.NewInsert().
		Model(comp).
		On("CONFLICT (company_key) DO UPDATE").
		Set("name = excluded.name").
		Set("status = excluded.status").
		Exec(ctx)
	if err != nil {
		return nil, &StorageError{Op: "company upsert", Err: err}
	}

	stored := new(Company)
	err = r.db.NewSelect().
		Model(stored).
		Where("company_key = ?", companyKey).
		Scan(ctx)
	if err != nil {
		return nil, &StorageError{Op: "company read-back", Err: err}
	}

	r.logger.InfoContext(ctx, "company upserted",
		slog.String("company_key", companyKey),
		slog.String("status", stored.Status),
	)
	return stored, nil
}

// SetDeviceStatus moves a device to AUTHORIZED or REVOKED and refreshes its
// last_seen timestamp. The update and the existence check are the same
// statement: zero rows affected means the device was never seen, and no row
// is created.
func (r *Registry) SetDeviceStatus(ctx context.Context, companyKey, deviceID, status string) error {
	companyKey = strings.TrimSpace(companyKey)
	deviceID = strings.TrimSpace(deviceID)
	if companyKey == "" {
		return &ValidationError{Field: "company_key", Message: "must not be empty"}
	}
	if deviceID == "" {
		return &ValidationError{Field: "device_id", Message: "must not be empty"}
	}

	status = strings.ToUpper(strings.TrimSpace(status))
	if !ValidDeviceTransition(status) {
		return &ValidationError{Field: "status", Message: "must be AUTHORIZED or REVOKED"}
	}

	res, err := r.db.NewUpdate().
		Model((*Device)(nil)).
		Set("status = ?", status).
		Set("last_seen = ?", r.now()).
		Where("company_key = ? AND device_id = ?", companyKey, deviceID).
		Exec(ctx)
	if err != nil {
		return &StorageError{Op: "device status update", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &StorageError{Op: "device status update", Err: err}
	}
	if affected == 0 {
		return &NotFoundError{Resource: "device", Key: companyKey + "/" + deviceID}
	}

	r.logger.InfoContext(ctx, "device status changed",
		slog.String("company_key", companyKey),
		slog.String("device_id", deviceID),
		slog.String("status", status),
	)
	return nil
}

// ListDevices returns all devices for a company, most recently active first.
// An unknown company yields an empty slice, not an error.
func (r *Registry) ListDevices(ctx context.Context, companyKey string) ([]Device, error) {
	companyKey = strings.TrimSpace(companyKey)
	if companyKey == "" {
		return nil, &ValidationError{Field: "company_key", Message: "must not be empty"}
	}

	devices := make([]Device, 0)
	err := r.db.NewSelect().
		Model(&devices).
		Where("company_key = ?", companyKey).
		Order("last_seen DESC").
		Scan(ctx)
	if err != nil {
		return nil, &StorageError{Op: "device listing", Err: err}
	}
	return devices, nil
}

// GetCompany returns the stored company row, or nil when the company has
// never been seen.
func (r *Registry) GetCompany(ctx context.Context, companyKey string) (*Company, error) {
	companyKey = strings.TrimSpace(companyKey)
	if companyKey == "" {
		return nil, &ValidationError{Field: "company_key", Message: "must not be empty"}
	}

	stored := new(Company)
	err := r.db.NewSelect().
		Model(stored).
		Where("company_key = ?", companyKey).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "company lookup", Err: err}
	}
	return stored, nil
}
