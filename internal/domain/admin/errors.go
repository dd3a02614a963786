package admin

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid password")
	ErrNotConfigured      = errors.New("admin password is not configured")
	ErrInvalidHash        = errors.New("password hash is not a valid argon2id hash")
)
