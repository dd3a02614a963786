package mail

import (
	"bytes"
	"context"
	"fmt"
	"html"

	"github.com/otebe/matrix/internal/config"
	gomail "github.com/wneessen/go-mail"
)

const reportSubject = "Your Destiny Matrix report"

// Sender delivers reports over SMTP
type Sender struct {
	cfg     config.MailConfig
	deliver func(ctx context.Context, msg *gomail.Msg) error
}

// NewSender creates a Sender that dials the configured SMTP server per message
func NewSender(cfg config.MailConfig) *Sender {
	s := &Sender{cfg: cfg}
	s.deliver = s.dialAndSend
	return s
}

// SendReport e-mails pdf to the recipient as matrix-<name>.pdf
func (s *Sender) SendReport(ctx context.Context, to, name string, pdf []byte) error {
	msg, err := s.buildReportMessage(to, name, pdf)
	if err != nil {
		return err
	}
	return s.deliver(ctx, msg)
}

func (s *Sender) buildReportMessage(to, name string, pdf []byte) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(reportSubject)
	msg.SetBodyString(gomail.TypeTextHTML, reportBody(name))
	if err := msg.AttachReader(reportFilename(name), bytes.NewReader(pdf)); err != nil {
		return nil, fmt.Errorf("failed to attach report: %w", err)
	}
	return msg, nil
}

func (s *Sender) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func reportFilename(name string) string {
	return fmt.Sprintf("matrix-%s.pdf", name)
}

func reportBody(name string) string {
	return fmt.Sprintf(`<p>Hello, %s!</p>
<p>Your Destiny Matrix report is attached to this letter.</p>
<p>Thank you for your purchase.</p>`, html.EscapeString(name))
}
