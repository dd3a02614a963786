package admin

import (
	"errors"
	"fmt"
	"time"

	"github.com/otebe/matrix/internal/token"
)

// Subject is the token subject of the single admin account
const Subject = "admin"

// Service interface for admin authentication
type Service interface {
	Login(password string) (string, error)
	Authenticate(bearer string) (*token.Claims, error)
}

type service struct {
	passwordHash string
	signer       *token.Signer
	ttl          time.Duration
}

func NewService(passwordHash string, signer *token.Signer, ttl time.Duration) Service {
	return &service{passwordHash: passwordHash, signer: signer, ttl: ttl}
}

// Login verifies the admin password and issues an admin token
func (s *service) Login(password string) (string, error) {
	if s.passwordHash == "" {
		return "", ErrNotConfigured
	}

	ok, err := VerifyPassword(password, s.passwordHash)
	if err != nil {
		return "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	return s.signer.SignAdmin(Subject, s.ttl)
}

// Authenticate verifies an admin token
func (s *service) Authenticate(bearer string) (*token.Claims, error) {
	claims, err := s.signer.Verify(bearer, token.AudienceAdmin)
	if err != nil {
		return nil, errors.Join(ErrInvalidCredentials, err)
	}
	return claims, nil
}
