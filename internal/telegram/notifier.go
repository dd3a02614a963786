package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/otebe/matrix/internal/domain/payment"
)

const (
	actionApprove = "approve"
	actionReject  = "reject"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// NotifyPaymentRequest posts a new request to the admin chat with
// Approve/Reject buttons
func (b *Bot) NotifyPaymentRequest(ctx context.Context, req *payment.Request) error {
	if b.adminChatID == 0 {
		return ErrNoAdminChat
	}

	msg := tgbotapi.NewMessage(b.adminChatID, b.formatPaymentRequest(req))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", callbackData(actionApprove, req.ID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", callbackData(actionReject, req.ID)),
		),
	)

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

func (b *Bot) formatPaymentRequest(req *payment.Request) string {
	phone := req.Phone
	if phone == "" {
		phone = "not specified"
	}

	lines := []string{
		fmt.Sprintf("🔔 *New payment request #%d*", req.ID),
		"",
		"📧 Email: " + markdownEscaper.Replace(req.Email),
		"📱 Phone: " + markdownEscaper.Replace(phone),
		"📦 Plan: " + req.PlanType.Label(),
		fmt.Sprintf("💰 Amount: %d ₽", req.Amount),
	}
	if req.ScreenshotURL != "" {
		lines = append(lines, fmt.Sprintf("🖼 [Payment screenshot](%s)", req.ScreenshotURL))
	}
	if b.adminURL != "" {
		lines = append(lines, fmt.Sprintf("🔗 [Open admin panel](%s)", b.adminURL))
	}
	return strings.Join(lines, "\n")
}

func callbackData(action string, id uint) string {
	return fmt.Sprintf("%s_%d", action, id)
}
