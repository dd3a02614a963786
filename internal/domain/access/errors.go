package access

import "errors"

var (
	// ErrEmailRequired is returned when a request carries no email
	ErrEmailRequired = errors.New("email is required")
	// ErrInvalidPlan is returned for an unknown plan type
	ErrInvalidPlan = errors.New("invalid plan type")
	// ErrGrantNotFound is returned by admin operations on an email without a grant
	ErrGrantNotFound = errors.New("access grant not found")
	// ErrInvalidDeviceLimit is returned when max_devices is below 1
	ErrInvalidDeviceLimit = errors.New("max_devices must be at least 1")
)
