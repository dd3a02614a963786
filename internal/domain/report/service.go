package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/otebe/matrix/internal/domain/access"
	"github.com/otebe/matrix/internal/token"
	"gorm.io/gorm"
)

const defaultRecipientName = "Client"

// Mailer delivers a rendered report
type Mailer interface {
	SendReport(ctx context.Context, to, name string, pdf []byte) error
}

// Service interface for report download accounting
type Service interface {
	Download(ctx context.Context, in DownloadRequest) (*Result, error)
}

type service struct {
	db     *gorm.DB
	repo   Repository
	grants access.Repository
	mailer Mailer
	signer *token.Signer
	now    func() time.Time
}

// NewService creates a report Service. mailer may be nil, which disables
// delivery; signer may be nil, which ignores session tokens.
func NewService(db *gorm.DB, repo Repository, grants access.Repository, mailer Mailer, signer *token.Signer) Service {
	return &service{
		db:     db,
		repo:   repo,
		grants: grants,
		mailer: mailer,
		signer: signer,
		now:    time.Now,
	}
}

// Download checks the grant, consumes one download of a quota-boxed plan and
// records the download in one transaction, then e-mails the PDF if supplied.
func (s *service) Download(ctx context.Context, in DownloadRequest) (*Result, error) {
	email := access.NormalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	if in.SessionToken != "" && s.signer != nil {
		claims, err := s.signer.Verify(in.SessionToken, token.AudienceAccess)
		if err != nil || claims.Subject != email {
			return nil, ErrInvalidSessionToken
		}
	}

	calc := strings.TrimSpace(string(in.CalculationData))
	if calc == "" || calc == "null" {
		calc = "{}"
	}

	result := &Result{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		grants := s.grants.WithTx(tx)

		grant, err := grants.FindByEmail(email)
		if err != nil {
			return fmt.Errorf("failed to load access grant: %w", err)
		}
		if grant == nil {
			return ErrAccessNotFound
		}
		if grant.Expired(s.now().UTC()) {
			return ErrAccessExpired
		}

		if grant.DownloadsLeft != nil {
			ok, err := grants.DecrementDownloads(email)
			if err != nil {
				return fmt.Errorf("failed to consume download: %w", err)
			}
			if !ok {
				return ErrQuotaExhausted
			}
		}

		if err := s.repo.WithTx(tx).Create(&Download{
			Email:           email,
			CalculationData: calc,
			CreatedAt:       s.now().UTC(),
		}); err != nil {
			return fmt.Errorf("failed to record download: %w", err)
		}

		updated, err := grants.FindByEmail(email)
		if err != nil {
			return fmt.Errorf("failed to reload access grant: %w", err)
		}
		if updated != nil {
			result.DownloadsLeft = updated.DownloadsLeft
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.PDFBase64 != "" {
		result.EmailSent = s.sendReport(ctx, email, in.Name, in.PDFBase64)
	}

	return result, nil
}

func (s *service) sendReport(ctx context.Context, email, name, encoded string) bool {
	if s.mailer == nil {
		return false
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultRecipientName
	}

	if _, payload, ok := strings.Cut(encoded, ","); ok && strings.HasPrefix(encoded, "data:") {
		encoded = payload
	}
	pdf, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		slog.Warn("Failed to decode report PDF", "error", err, "email", email)
		return false
	}

	if err := s.mailer.SendReport(ctx, email, name, pdf); err != nil {
		slog.Warn("Failed to e-mail report", "error", err, "email", email)
		return false
	}
	return true
}
