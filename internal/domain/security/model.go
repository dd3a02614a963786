package security

import "time"

// EventType classifies a denied or suspicious access attempt
type EventType string

const (
	EventExpiredAccess       EventType = "expired_access"
	EventDeviceLimitExceeded EventType = "device_limit_exceeded"
	EventTooManyDevices      EventType = "too_many_devices"
)

// Event is an append-only security log entry
type Event struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"column:email;not null;index" json:"email"`
	EventType      EventType `gorm:"column:event_type;type:text;not null" json:"event_type"`
	DeviceIdentity string    `gorm:"column:device_identity;not null;default:''" json:"device_identity"`
	UserAgent      string    `gorm:"column:user_agent;not null;default:''" json:"user_agent"`
	Details        string    `gorm:"column:details;not null;default:''" json:"details"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (Event) TableName() string {
	return "security_logs"
}
