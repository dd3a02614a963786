package session

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DefaultWindow is how long a session stays active after its last use
const DefaultWindow = 24 * time.Hour

// Service interface for device session operations
type Service interface {
	Admit(email string, device Device, maxDevices int) (*Admission, error)
	ListActive(email string) ([]DeviceSession, error)
	Logout(email, identity string) (int64, error)
	RevokeAll(email string) (int64, error)
	CleanupUnknown() (int64, error)
	Prune() (int64, error)
	WithTx(tx *gorm.DB) Service
}

type service struct {
	repo   Repository
	window time.Duration
	now    func() time.Time
}

// NewService creates a session Service; a non-positive window falls back to DefaultWindow
func NewService(repo Repository, window time.Duration) Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &service{repo: repo, window: window, now: time.Now}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx), window: s.window, now: s.now}
}

func (s *service) cutoff() (now, cutoff time.Time) {
	now = s.now().UTC()
	return now, now.Add(-s.window)
}

// Admit evicts stale sessions, recognises a returning device and otherwise
// registers the device when a slot is free. A returning device is never
// refused, even when the active count already exceeds maxDevices.
func (s *service) Admit(email string, device Device, maxDevices int) (*Admission, error) {
	now, cutoff := s.cutoff()

	if _, err := s.repo.EvictStale(email, cutoff); err != nil {
		return nil, fmt.Errorf("failed to evict stale sessions: %w", err)
	}

	active, err := s.repo.ListActive(email, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	count := CountIdentities(active)

	for _, sess := range active {
		if sess.DeviceIdentity == device.Identity {
			if err := s.repo.Touch(sess.ID, now); err != nil {
				return nil, fmt.Errorf("failed to refresh session: %w", err)
			}
			return &Admission{Admitted: true, Returning: true, ActiveCount: count}, nil
		}
	}

	if count >= maxDevices {
		return &Admission{Admitted: false, ActiveCount: count}, nil
	}

	sess := &DeviceSession{
		Email:          email,
		DeviceIdentity: device.Identity,
		UserAgent:      device.UserAgent,
		CreatedAt:      now,
		LastActivity:   now,
	}
	if err := s.repo.Create(sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &Admission{Admitted: true, ActiveCount: count + 1}, nil
}

// ListActive returns the sessions used within the window, most recent first
func (s *service) ListActive(email string) ([]DeviceSession, error) {
	_, cutoff := s.cutoff()
	return s.repo.ListActive(email, cutoff)
}

// Logout deletes the device's sessions; repeating it returns 0
func (s *service) Logout(email, identity string) (int64, error) {
	return s.repo.DeleteByDevice(email, identity)
}

func (s *service) RevokeAll(email string) (int64, error) {
	return s.repo.DeleteByEmail(email)
}

// CleanupUnknown deletes sessions recorded without a usable device identity
func (s *service) CleanupUnknown() (int64, error) {
	return s.repo.DeleteUnknown()
}

// Prune deletes every session that fell out of the window
func (s *service) Prune() (int64, error) {
	_, cutoff := s.cutoff()
	return s.repo.Prune(cutoff)
}
