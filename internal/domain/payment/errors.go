package payment

import "errors"

var (
	// ErrEmailRequired is returned when a submission carries no email
	ErrEmailRequired = errors.New("email is required")
	// ErrInvalidAmount is returned for a negative amount
	ErrInvalidAmount = errors.New("amount must not be negative")
	// ErrInvalidStatus is returned for an unknown status filter
	ErrInvalidStatus = errors.New("invalid status")
	// ErrRequestNotFound is returned when the payment request does not exist
	ErrRequestNotFound = errors.New("payment request not found")
	// ErrAlreadyReviewed is returned when approving or rejecting a request that is no longer pending
	ErrAlreadyReviewed = errors.New("payment request already reviewed")
)
