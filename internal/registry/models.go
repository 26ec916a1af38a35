package registry

import (
	"time"

	"github.com/uptrace/bun"
)

// Company status values.
const (
	CompanyActive  = "ACTIVE"
	CompanyBlocked = "BLOCKED"
)

// Device status values. A device is created PENDING and only ever moves
// to AUTHORIZED or REVOKED through an explicit admin action.
const (
	DevicePending    = "PENDING"
	DeviceAuthorized = "AUTHORIZED"
	DeviceRevoked    = "REVOKED"
)

// Company represents a tenant owning a group of POS devices.
type Company struct {
	bun.BaseModel `bun:"table:companies"`

	CompanyKey string    `bun:"company_key,pk" json:"company_key"`
	Name       string    `bun:"name,notnull" json:"name"`
	Status     string    `bun:"status,notnull,default:'ACTIVE'" json:"status"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Device represents a single POS terminal, identified by the composite
// (company_key, device_id) key.
type Device struct {
	bun.BaseModel `bun:"table:devices"`

	CompanyKey    string    `bun:"company_key,pk" json:"company_key"`
	DeviceID      string    `bun:"device_id,pk" json:"device_id"`
	Hostname      string    `bun:"hostname,notnull,default:''" json:"hostname"`
	PCName        string    `bun:"pc_name,notnull,default:''" json:"pc_name"`
	RequesterName string    `bun:"requester_name,notnull,default:''" json:"requester_name"`
	Establishment string    `bun:"establishment,notnull,default:''" json:"establishment"`
	Status        string    `bun:"status,notnull,default:'PENDING'" json:"status"`
	FirstSeen     time.Time `bun:"first_seen,notnull" json:"first_seen"`
	LastSeen      time.Time `bun:"last_seen,notnull" json:"last_seen"`
}

// CheckInMetadata carries the free-text descriptive fields a terminal
// reports on check-in. All fields are optional and stored fill-if-empty.
type CheckInMetadata struct {
	Hostname      string
	PCName        string
	RequesterName string
	Establishment string
}

// ValidCompanyStatus reports whether s is a recognized company status.
func ValidCompanyStatus(s string) bool {
	return s == CompanyActive || s == CompanyBlocked
}

// ValidDeviceTransition reports whether s is a status an admin may set.
// PENDING is excluded: it exists only as the initial state.
func ValidDeviceTransition(s string) bool {
	return s == DeviceAuthorized || s == DeviceRevoked
}
