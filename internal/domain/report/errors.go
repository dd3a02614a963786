package report

import "errors"

var (
	// ErrEmailRequired is returned when a request carries no email
	ErrEmailRequired = errors.New("email is required")

	// The errors below deny the download with 403

	ErrAccessNotFound      = errors.New("access not found")
	ErrAccessExpired       = errors.New("access has expired")
	ErrQuotaExhausted      = errors.New("all downloads have been used")
	ErrInvalidSessionToken = errors.New("session token is not valid for this email")
)

// IsDenied reports whether err refuses the download rather than failing it
func IsDenied(err error) bool {
	return errors.Is(err, ErrAccessNotFound) ||
		errors.Is(err, ErrAccessExpired) ||
		errors.Is(err, ErrQuotaExhausted) ||
		errors.Is(err, ErrInvalidSessionToken)
}
