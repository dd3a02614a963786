package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/otebe/matrix/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
)

func testConfig() config.MailConfig {
	return config.MailConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "reports@example.com",
	}
}

func TestSendReport_BuildsMessage(t *testing.T) {
	s := NewSender(testConfig())

	var sent *gomail.Msg
	s.deliver = func(ctx context.Context, msg *gomail.Msg) error {
		sent = msg
		return nil
	}

	pdf := []byte("%PDF-1.4 report")
	require.NoError(t, s.SendReport(context.Background(), "anna@example.com", "Anna", pdf))
	require.NotNil(t, sent)

	assert.Equal(t, []string{reportSubject}, sent.GetGenHeader(gomail.HeaderSubject))

	rcpts, err := sent.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"anna@example.com"}, rcpts)

	attachments := sent.GetAttachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, "matrix-Anna.pdf", attachments[0].Name)

	var buf bytes.Buffer
	_, err = sent.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Hello, Anna!")
}

func TestSendReport_InvalidAddress(t *testing.T) {
	s := NewSender(testConfig())
	called := false
	s.deliver = func(ctx context.Context, msg *gomail.Msg) error {
		called = true
		return nil
	}

	err := s.SendReport(context.Background(), "not an address", "Anna", []byte("x"))
	assert.Error(t, err)
	assert.False(t, called)
}

func TestSendReport_DeliveryError(t *testing.T) {
	s := NewSender(testConfig())
	s.deliver = func(ctx context.Context, msg *gomail.Msg) error {
		return errors.New("connection refused")
	}

	err := s.SendReport(context.Background(), "anna@example.com", "Anna", []byte("x"))
	assert.EqualError(t, err, "connection refused")
}

func TestReportBody_EscapesName(t *testing.T) {
	assert.Contains(t, reportBody("<b>Eve</b>"), "&lt;b&gt;Eve&lt;/b&gt;")
}
