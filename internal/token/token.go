package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const (
	// AudienceAccess marks session tokens issued by the access gate
	AudienceAccess = "access"
	// AudienceAdmin marks admin panel tokens
	AudienceAdmin = "admin"

	claimDevice = "did"
)

var (
	// ErrInvalidToken is returned when a token fails signature, audience or expiry validation
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptySecret is returned when the signer is built without a secret
	ErrEmptySecret = errors.New("signing secret is empty")
)

// Claims holds the verified contents of a token
type Claims struct {
	Subject   string
	DeviceID  string
	Audience  string
	ExpiresAt time.Time
}

// Signer issues and verifies HS256 tokens with a shared secret
type Signer struct {
	secret []byte
	issuer string
}

// NewSigner creates a Signer for the given secret and issuer
func NewSigner(secret []byte, issuer string) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: secret, issuer: issuer}, nil
}

// SignSession issues an access-gate session token bound to an email and device identity
func (s *Signer) SignSession(email, deviceID string, expiresAt time.Time) (string, error) {
	return s.sign(AudienceAccess, email, expiresAt, map[string]any{claimDevice: deviceID})
}

// SignAdmin issues an admin panel token valid for ttl
func (s *Signer) SignAdmin(subject string, ttl time.Duration) (string, error) {
	return s.sign(AudienceAdmin, subject, time.Now().UTC().Add(ttl), nil)
}

func (s *Signer) sign(audience, subject string, expiresAt time.Time, extra map[string]any) (string, error) {
	builder := jwt.NewBuilder().
		Issuer(s.issuer).
		Audience([]string{audience}).
		Subject(subject).
		JwtID(uuid.NewString()).
		IssuedAt(time.Now().UTC()).
		Expiration(expiresAt)

	for k, v := range extra {
		builder = builder.Claim(k, v)
	}

	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// Verify checks signature, issuer, audience and expiry and returns the claims
func (s *Signer) Verify(tokenString, audience string) (*Claims, error) {
	tok, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), s.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(audience),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := &Claims{Audience: audience}
	if sub, ok := tok.Subject(); ok {
		claims.Subject = sub
	}
	if exp, ok := tok.Expiration(); ok {
		claims.ExpiresAt = exp
	}

	var did string
	if tok.Get(claimDevice, &did) == nil {
		claims.DeviceID = did
	}

	return claims, nil
}
