package report

import (
	"encoding/json"
	"time"
)

// Download records one counted report download
type Download struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Email           string    `gorm:"column:email;not null;index" json:"email"`
	CalculationData string    `gorm:"column:calculation_data;type:text;not null" json:"calculation_data"`
	CreatedAt       time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Download) TableName() string {
	return "downloads"
}

// DownloadRequest is the download-report body
type DownloadRequest struct {
	Email           string          `json:"email"`
	CalculationData json.RawMessage `json:"calculation_data"`
	// PDFBase64 is the rendered report; when present it is e-mailed to Email
	PDFBase64    string `json:"pdf_base64"`
	Name         string `json:"name"`
	SessionToken string `json:"session_token"`
}

// Result is the outcome of a counted download
type Result struct {
	DownloadsLeft *int `json:"downloads_left"`
	EmailSent     bool `json:"email_sent"`
}
