package access

import (
	"strings"
	"time"
)

// PlanType is the kind of paid access a grant carries
type PlanType string

const (
	PlanSingle   PlanType = "single"
	PlanMonth    PlanType = "month"
	PlanHalfYear PlanType = "half_year"
	PlanYear     PlanType = "year"
)

// ParsePlanType validates a plan name
func ParsePlanType(s string) (PlanType, error) {
	switch p := PlanType(strings.TrimSpace(s)); p {
	case PlanSingle, PlanMonth, PlanHalfYear, PlanYear:
		return p, nil
	default:
		return "", ErrInvalidPlan
	}
}

// TimeBoxed reports whether the plan expires at a fixed time and is device-limited
func (p PlanType) TimeBoxed() bool {
	return p == PlanMonth || p == PlanHalfYear || p == PlanYear
}

// Duration is the validity period of a time-boxed plan
func (p PlanType) Duration() time.Duration {
	switch p {
	case PlanMonth:
		return 30 * 24 * time.Hour
	case PlanHalfYear:
		return 180 * 24 * time.Hour
	case PlanYear:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// Label is the human readable plan name used in notifications
func (p PlanType) Label() string {
	switch p {
	case PlanSingle:
		return "Single report"
	case PlanMonth:
		return "1 month"
	case PlanHalfYear:
		return "6 months"
	case PlanYear:
		return "1 year"
	default:
		return string(p)
	}
}

// Grant is a user's entitlement. ExpiresAt drives expiry for time-boxed plans
// and DownloadsLeft for quota-boxed ones; both nil means valid until revoked.
type Grant struct {
	ID            uint       `gorm:"primaryKey" json:"-"`
	Email         string     `gorm:"column:email;not null;uniqueIndex:idx_active_access_email" json:"email"`
	PlanType      PlanType   `gorm:"column:plan_type;type:text;not null" json:"plan_type"`
	ExpiresAt     *time.Time `gorm:"column:expires_at" json:"expires_at"`
	DownloadsLeft *int       `gorm:"column:downloads_left" json:"downloads_left"`
	MaxDevices    int        `gorm:"column:max_devices;not null;default:2" json:"max_devices"`
	GrantedAt     time.Time  `gorm:"column:granted_at;not null" json:"granted_at"`
	GrantedBy     string     `gorm:"column:granted_by;not null;default:''" json:"granted_by"`
}

func (Grant) TableName() string {
	return "active_access"
}

// Expired reports whether the grant's expiry is before now
func (g *Grant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// QuotaExhausted reports whether a quota-boxed grant has no downloads left
func (g *Grant) QuotaExhausted() bool {
	return g.DownloadsLeft != nil && *g.DownloadsLeft <= 0
}

// Reason explains a refused access check
type Reason string

const (
	ReasonNotFound       Reason = "NOT_FOUND"
	ReasonExpired        Reason = "EXPIRED"
	ReasonQuotaExhausted Reason = "QUOTA_EXHAUSTED"
	ReasonDeviceLimit    Reason = "DEVICE_LIMIT"
)

// Decision is the access gate's answer for one request
type Decision struct {
	HasAccess     bool       `json:"has_access"`
	Reason        Reason     `json:"reason,omitempty"`
	PlanType      PlanType   `json:"plan_type,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at"`
	DownloadsLeft *int       `json:"downloads_left"`
	GrantedAt     *time.Time `json:"granted_at,omitempty"`
	Message       string     `json:"message"`
	SessionToken  string     `json:"session_token,omitempty"`
}

// DeviceInfo describes one active device session
type DeviceInfo struct {
	DeviceIdentity string    `json:"device_identity"`
	IPAddress      string    `json:"ip_address"`
	DeviceType     string    `json:"device_type"`
	UserAgent      string    `json:"user_agent"`
	LastActivity   time.Time `json:"last_activity"`
	CreatedAt      time.Time `json:"created_at"`
	IsCurrent      bool      `json:"is_current"`
}

// DeviceList is the ListDevices result
type DeviceList struct {
	Devices     []DeviceInfo `json:"devices"`
	ActiveCount int          `json:"active_count"`
	MaxDevices  int          `json:"max_devices"`
	ExpiresAt   *time.Time   `json:"expires_at"`
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
