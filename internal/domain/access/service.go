package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otebe/matrix/internal/domain/security"
	"github.com/otebe/matrix/internal/domain/session"
	"github.com/otebe/matrix/internal/token"
	"gorm.io/gorm"
)

const (
	msgGranted        = "Access granted"
	msgNotFound       = "Access not found"
	msgExpired        = "Access has expired"
	msgQuotaExhausted = "All downloads have been used"
)

// Options tunes the gate policy
type Options struct {
	DefaultMaxDevices int
	// StrictDeviceLimit serializes the device-limit check per email with a row lock
	StrictDeviceLimit bool
	TokenTTL          time.Duration
}

// Service interface for access gate operations
type Service interface {
	CheckAccess(ctx context.Context, email string, device session.Device) (*Decision, error)
	ListDevices(email, identity string) (*DeviceList, error)
	Logout(email, identity string) (int64, error)
	Grant(email string, plan PlanType, grantedBy string) (*Grant, error)
	Revoke(email string) error
	SetDeviceLimit(email string, maxDevices int) error
	Lookup(email string) (*Grant, error)
}

type service struct {
	db       *gorm.DB
	repo     Repository
	sessions session.Service
	recorder security.Recorder
	signer   *token.Signer
	opts     Options
	now      func() time.Time
}

// NewService creates the access gate. recorder and signer may be nil, which
// disables security logging and session tokens respectively.
func NewService(db *gorm.DB, repo Repository, sessions session.Service, recorder security.Recorder, signer *token.Signer, opts Options) Service {
	if opts.DefaultMaxDevices < 1 {
		opts.DefaultMaxDevices = 2
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &service{
		db:       db,
		repo:     repo,
		sessions: sessions,
		recorder: recorder,
		signer:   signer,
		opts:     opts,
		now:      time.Now,
	}
}

// CheckAccess decides whether email may use the paid feature from device.
// Checks run in a fixed order (expiry, quota, device limit) so a dead grant never takes a device slot.
func (s *service) CheckAccess(ctx context.Context, email string, device session.Device) (*Decision, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	grant, err := s.repo.FindByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to load access grant: %w", err)
	}
	if grant == nil {
		return &Decision{HasAccess: false, Reason: ReasonNotFound, Message: msgNotFound}, nil
	}

	now := s.now().UTC()

	if grant.Expired(now) {
		s.record(ctx, security.EventExpiredAccess, email, device,
			fmt.Sprintf("plan %s expired at %s", grant.PlanType, grant.ExpiresAt.UTC().Format(time.RFC3339)))
		return deny(grant, ReasonExpired, msgExpired), nil
	}

	if grant.QuotaExhausted() {
		return deny(grant, ReasonQuotaExhausted, msgQuotaExhausted), nil
	}

	if grant.PlanType.TimeBoxed() {
		adm, maxDevices, err := s.admit(email, device, grant)
		if err != nil {
			return nil, err
		}
		if adm == nil {
			return &Decision{HasAccess: false, Reason: ReasonNotFound, Message: msgNotFound}, nil
		}

		if !adm.Admitted {
			s.record(ctx, security.EventDeviceLimitExceeded, email, device,
				fmt.Sprintf("active devices %d, limit %d", adm.ActiveCount, maxDevices))
			return deny(grant, ReasonDeviceLimit,
				fmt.Sprintf("Device limit reached: %d of %d devices are active", adm.ActiveCount, maxDevices)), nil
		}

		if adm.Returning && adm.ActiveCount > maxDevices {
			s.record(ctx, security.EventTooManyDevices, email, device,
				fmt.Sprintf("active devices %d, limit %d", adm.ActiveCount, maxDevices))
		}
	}

	decision := &Decision{
		HasAccess:     true,
		PlanType:      grant.PlanType,
		ExpiresAt:     grant.ExpiresAt,
		DownloadsLeft: grant.DownloadsLeft,
		GrantedAt:     &grant.GrantedAt,
		Message:       msgGranted,
	}
	if grant.PlanType.TimeBoxed() {
		decision.SessionToken = s.issueToken(email, device.Identity, grant.ExpiresAt, now)
	}

	return decision, nil
}

// admit runs the device-limit check. A nil admission means the grant was
// removed while the check waited for its row lock.
func (s *service) admit(email string, device session.Device, grant *Grant) (*session.Admission, int, error) {
	maxDevices := s.maxDevices(grant)

	if !s.opts.StrictDeviceLimit {
		adm, err := s.sessions.Admit(email, device, maxDevices)
		return adm, maxDevices, err
	}

	var adm *session.Admission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).FindByEmailForUpdate(email)
		if err != nil {
			return fmt.Errorf("failed to lock access grant: %w", err)
		}
		if locked == nil {
			return nil
		}
		maxDevices = s.maxDevices(locked)

		adm, err = s.sessions.WithTx(tx).Admit(email, device, maxDevices)
		return err
	})
	if err != nil {
		return nil, maxDevices, err
	}
	return adm, maxDevices, nil
}

func (s *service) maxDevices(grant *Grant) int {
	if grant.MaxDevices < 1 {
		return s.opts.DefaultMaxDevices
	}
	return grant.MaxDevices
}

func (s *service) record(ctx context.Context, eventType security.EventType, email string, device session.Device, details string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, &security.Event{
		Email:          email,
		EventType:      eventType,
		DeviceIdentity: device.Identity,
		UserAgent:      device.UserAgent,
		Details:        details,
	})
}

// issueToken returns a session token valid until the earlier of the grant
// expiry and the token TTL. Signing failures only cost the token.
func (s *service) issueToken(email, identity string, expiresAt *time.Time, now time.Time) string {
	if s.signer == nil {
		return ""
	}

	exp := now.Add(s.opts.TokenTTL)
	if expiresAt != nil && expiresAt.Before(exp) {
		exp = *expiresAt
	}

	tok, err := s.signer.SignSession(email, identity, exp)
	if err != nil {
		slog.Warn("Failed to issue session token", "error", err, "email", email)
		return ""
	}
	return tok
}

func deny(grant *Grant, reason Reason, message string) *Decision {
	return &Decision{
		HasAccess:     false,
		Reason:        reason,
		PlanType:      grant.PlanType,
		ExpiresAt:     grant.ExpiresAt,
		DownloadsLeft: grant.DownloadsLeft,
		Message:       message,
	}
}

// ListDevices returns the active sessions of email. It has no side effects.
func (s *service) ListDevices(email, identity string) (*DeviceList, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	list := &DeviceList{Devices: []DeviceInfo{}, MaxDevices: s.opts.DefaultMaxDevices}

	grant, err := s.repo.FindByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to load access grant: %w", err)
	}
	if grant == nil {
		return list, nil
	}
	list.MaxDevices = s.maxDevices(grant)
	list.ExpiresAt = grant.ExpiresAt

	sessions, err := s.sessions.ListActive(email)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	for _, sess := range sessions {
		list.Devices = append(list.Devices, DeviceInfo{
			DeviceIdentity: sess.DeviceIdentity,
			IPAddress:      sess.DeviceIdentity,
			DeviceType:     string(session.ClassifyUserAgent(sess.UserAgent)),
			UserAgent:      sess.UserAgent,
			LastActivity:   sess.LastActivity,
			CreatedAt:      sess.CreatedAt,
			IsCurrent:      sess.DeviceIdentity == identity,
		})
	}
	list.ActiveCount = session.CountIdentities(sessions)

	return list, nil
}

// Logout ends the device's session and returns the number of rows removed
func (s *service) Logout(email, identity string) (int64, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return 0, ErrEmailRequired
	}

	n, err := s.sessions.Logout(email, identity)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}
	return n, nil
}

// Grant creates or overwrites the entitlement for email. single gets one
// download; time-boxed plans expire after their duration from now.
func (s *service) Grant(email string, plan PlanType, grantedBy string) (*Grant, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	plan, err := ParsePlanType(string(plan))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	grant := &Grant{
		Email:      email,
		PlanType:   plan,
		MaxDevices: s.opts.DefaultMaxDevices,
		GrantedAt:  now,
		GrantedBy:  grantedBy,
	}
	if plan.TimeBoxed() {
		exp := now.Add(plan.Duration())
		grant.ExpiresAt = &exp
	} else {
		one := 1
		grant.DownloadsLeft = &one
	}

	saved, err := s.repo.Upsert(grant)
	if err != nil {
		return nil, fmt.Errorf("failed to save access grant: %w", err)
	}

	slog.Info("Access granted", "email", email, "plan_type", plan, "granted_by", grantedBy)
	return saved, nil
}

// Revoke deletes the grant of email together with all of its sessions
func (s *service) Revoke(email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).Delete(email)
		if err != nil {
			return fmt.Errorf("failed to delete access grant: %w", err)
		}
		if n == 0 {
			return ErrGrantNotFound
		}
		if _, err := s.sessions.WithTx(tx).RevokeAll(email); err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
		return nil
	})
}

// SetDeviceLimit overrides max_devices for one grant
func (s *service) SetDeviceLimit(email string, maxDevices int) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	if maxDevices < 1 {
		return ErrInvalidDeviceLimit
	}

	n, err := s.repo.UpdateMaxDevices(email, maxDevices)
	if err != nil {
		return fmt.Errorf("failed to update device limit: %w", err)
	}
	if n == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// Lookup returns the grant of email without touching sessions
func (s *service) Lookup(email string) (*Grant, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	grant, err := s.repo.FindByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to load access grant: %w", err)
	}
	if grant == nil {
		return nil, ErrGrantNotFound
	}
	return grant, nil
}
