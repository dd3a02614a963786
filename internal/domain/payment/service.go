package payment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otebe/matrix/internal/domain/access"
)

const screenshotPrefix = "payment-screenshots/"

// Granter applies an approved plan to an email
type Granter interface {
	Grant(email string, plan access.PlanType, grantedBy string) (*access.Grant, error)
}

// Uploader stores a payment screenshot and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Notifier tells the admins about a new payment request
type Notifier interface {
	NotifyPaymentRequest(ctx context.Context, req *Request) error
}

// Service interface for payment operations
type Service interface {
	Submit(ctx context.Context, in SubmitRequest) (*Request, error)
	List(status Status) ([]Request, error)
	Approve(id uint, by string) (*Request, error)
	Reject(id uint, by string) (*Request, error)
}

type service struct {
	repo     Repository
	granter  Granter
	uploader Uploader
	notifier Notifier
	prices   map[string]int
	now      func() time.Time
}

// NewService creates a payment Service. uploader and notifier may be nil,
// which skips screenshot storage and admin notifications.
func NewService(repo Repository, granter Granter, uploader Uploader, notifier Notifier, prices map[string]int) Service {
	return &service{
		repo:     repo,
		granter:  granter,
		uploader: uploader,
		notifier: notifier,
		prices:   prices,
		now:      time.Now,
	}
}

// Submit stores a pending request. Screenshot upload and admin notification
// are best-effort and never fail the submission.
func (s *service) Submit(ctx context.Context, in SubmitRequest) (*Request, error) {
	email := access.NormalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	planName := in.PlanType
	if planName == "" {
		planName = string(access.PlanSingle)
	}
	plan, err := access.ParsePlanType(planName)
	if err != nil {
		return nil, err
	}

	amount := in.Amount
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	if amount == 0 {
		amount = s.prices[string(plan)]
	}

	req := &Request{
		Email:     email,
		Phone:     strings.TrimSpace(in.Phone),
		PlanType:  plan,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}

	if in.Screenshot != "" {
		req.ScreenshotURL = s.uploadScreenshot(ctx, email, in.Screenshot)
	}

	if err := s.repo.Create(req); err != nil {
		return nil, fmt.Errorf("failed to save payment request: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyPaymentRequest(ctx, req); err != nil {
			slog.Warn("Failed to notify admins about payment request", "error", err, "request_id", req.ID)
		}
	}

	slog.Info("Payment request submitted", "request_id", req.ID, "email", email, "plan_type", plan)
	return req, nil
}

func (s *service) uploadScreenshot(ctx context.Context, email, encoded string) string {
	if s.uploader == nil {
		return ""
	}

	data, contentType, err := decodeImage(encoded)
	if err != nil {
		slog.Warn("Failed to decode payment screenshot", "error", err, "email", email)
		return ""
	}

	key := fmt.Sprintf("%s%s_%s.jpg", screenshotPrefix, safeKeyPart(email), uuid.NewString())
	url, err := s.uploader.Upload(ctx, key, data, contentType)
	if err != nil {
		slog.Warn("Failed to upload payment screenshot", "error", err, "email", email)
		return ""
	}
	return url
}

// decodeImage accepts raw base64 or a data: URL and returns the bytes and content type
func decodeImage(encoded string) ([]byte, string, error) {
	contentType := "image/jpeg"

	if header, payload, ok := strings.Cut(encoded, ","); ok {
		if mime, found := strings.CutPrefix(header, "data:"); found {
			mime, _, _ = strings.Cut(mime, ";")
			if mime != "" {
				contentType = mime
			}
		}
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty image")
	}
	return data, contentType, nil
}

// safeKeyPart keeps letters, digits, dot and dash; everything else becomes "_"
func safeKeyPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

func (s *service) List(status Status) ([]Request, error) {
	reqs, err := s.repo.List(status)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment requests: %w", err)
	}
	return reqs, nil
}

// Approve marks a pending request approved and grants its plan.
// If the grant fails the request goes back to pending.
func (s *service) Approve(id uint, by string) (*Request, error) {
	req, err := s.review(id, StatusApproved, by)
	if err != nil {
		return nil, err
	}

	if _, err := s.granter.Grant(req.Email, req.PlanType, by); err != nil {
		if reopenErr := s.repo.Reopen(id); reopenErr != nil {
			slog.Error("Failed to reopen payment request after grant failure", "error", reopenErr, "request_id", id)
		}
		return nil, fmt.Errorf("failed to grant access: %w", err)
	}

	slog.Info("Payment request approved", "request_id", id, "email", req.Email, "by", by)
	return req, nil
}

// Reject marks a pending request rejected
func (s *service) Reject(id uint, by string) (*Request, error) {
	req, err := s.review(id, StatusRejected, by)
	if err != nil {
		return nil, err
	}

	slog.Info("Payment request rejected", "request_id", id, "email", req.Email, "by", by)
	return req, nil
}

func (s *service) review(id uint, status Status, by string) (*Request, error) {
	req, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, ErrAlreadyReviewed
	}

	now := s.now().UTC()
	ok, err := s.repo.MarkReviewed(id, status, by, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update payment request: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyReviewed
	}

	req.Status = status
	req.ReviewedAt = &now
	req.ReviewedBy = by
	return req, nil
}
