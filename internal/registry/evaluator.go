package registry

// Verdict is the authorization decision returned to a checking-in device.
// Status and Message are omitted from the wire format when empty; callers
// must treat Authorized as the single source of truth.
type Verdict struct {
	Authorized bool   `json:"authorized"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message,omitempty"`
}

// StatusCompanyBlocked is returned when the company-level gate denies the
// device regardless of its own status.
const StatusCompanyBlocked = "COMPANY_BLOCKED"

// Evaluate computes an authorization verdict from the stored company and
// device statuses. It is a pure function with no side effects.
//
// companyStatus may be empty when the deployment does not track companies;
// an absent company is treated as ACTIVE. Company gating takes precedence
// over the device status so an administrator can lock out an entire tenant
// without touching individual device rows.
func Evaluate(companyStatus, deviceStatus string) Verdict {
	if companyStatus != "" && companyStatus != CompanyActive {
		return Verdict{
			Authorized: false,
			Status:     StatusCompanyBlocked,
			Message:    "company blocked by administrator",
		}
	}

	switch deviceStatus {
	case DeviceAuthorized:
		return Verdict{
			Authorized: true,
			Status:     DeviceAuthorized,
			Message:    "OK",
		}
	case DeviceRevoked:
		return Verdict{
			Authorized: false,
			Status:     DeviceRevoked,
			Message:    "authorization revoked by administrator",
		}
	default:
		// PENDING, or an unreadable stored value: never authorize.
		return Verdict{
			Authorized: false,
			Status:     DevicePending,
			Message:    "waiting for administrator authorization",
		}
	}
}
