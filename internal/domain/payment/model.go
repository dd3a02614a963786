package payment

import (
	"time"

	"github.com/otebe/matrix/internal/domain/access"
)

// Status is the review state of a payment request
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a status filter; an empty string means any status
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case "", StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Request is a manual payment awaiting admin review
type Request struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Email         string          `gorm:"column:email;not null" json:"email"`
	Phone         string          `gorm:"column:phone;not null;default:''" json:"phone"`
	PlanType      access.PlanType `gorm:"column:plan_type;type:text;not null" json:"plan_type"`
	Amount        int             `gorm:"column:amount;not null" json:"amount"`
	ScreenshotURL string          `gorm:"column:screenshot_url;not null;default:''" json:"screenshot_url"`
	Status        Status          `gorm:"column:status;type:text;not null;index" json:"status"`
	CreatedAt     time.Time       `gorm:"column:created_at;not null;index" json:"created_at"`
	ReviewedAt    *time.Time      `gorm:"column:reviewed_at" json:"reviewed_at"`
	ReviewedBy    string          `gorm:"column:reviewed_by;not null;default:''" json:"reviewed_by"`
}

func (Request) TableName() string {
	return "payment_requests"
}

// SubmitRequest is the public payment-submit body
type SubmitRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	PlanType string `json:"plan_type"`
	Amount   int    `json:"amount"`
	// Screenshot is base64 image data, optionally as a data: URL
	Screenshot string `json:"screenshot"`
}
