package session

import (
	"time"
)

// UnknownIdentity is stored when no client address could be determined
const UnknownIdentity = "unknown"

// DeviceSession is one device actively using a grant
type DeviceSession struct {
	ID             uint      `gorm:"primaryKey"`
	Email          string    `gorm:"column:email;not null;index:idx_user_sessions_email_activity,priority:1"`
	DeviceIdentity string    `gorm:"column:device_identity;not null;index:idx_user_sessions_device_identity"`
	UserAgent      string    `gorm:"column:user_agent;not null;default:''"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	LastActivity   time.Time `gorm:"column:last_activity;not null;index:idx_user_sessions_email_activity,priority:2"`
}

func (DeviceSession) TableName() string {
	return "user_sessions"
}

// Device is the requesting device as seen by the gate
type Device struct {
	Identity  string
	UserAgent string
}

// Admission is the outcome of the device-limit check
type Admission struct {
	Admitted  bool
	Returning bool
	// ActiveCount is the number of distinct active identities after the check
	ActiveCount int
}
