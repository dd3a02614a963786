package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/domain/payment"
	"github.com/otebe/matrix/internal/utils"
)

// SecretHeader carries the webhook secret token
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const reviewer = "telegram"

// Deduplicator reports whether a callback id is seen for the first time.
// Forget clears the mark so a redelivery is processed again.
type Deduplicator interface {
	FirstSeen(ctx context.Context, id string) bool
	Forget(ctx context.Context, id string)
}

// WebhookHandler handles bot updates delivered by Telegram
type WebhookHandler struct {
	bot      *Bot
	payments payment.Service
	dedupe   Deduplicator
}

func NewWebhookHandler(bot *Bot, payments payment.Service, dedupe Deduplicator) *WebhookHandler {
	return &WebhookHandler{bot: bot, payments: payments, dedupe: dedupe}
}

// Handle answers POST /telegram-webhook. Telegram redelivers on non-2xx, so
// every well-formed update gets {ok:true}.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	if secret := h.bot.WebhookSecret(); secret != "" {
		got := c.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return utils.ErrorResponse(c, "Invalid webhook secret", fiber.StatusUnauthorized)
		}
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(c.Body(), &update); err != nil {
		return utils.ErrorResponse(c, "Invalid update body", fiber.StatusBadRequest)
	}

	if update.CallbackQuery != nil {
		h.handleCallback(c.UserContext(), update.CallbackQuery)
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *WebhookHandler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil || q.Message.Chat == nil || q.Message.Chat.ID != h.bot.adminChatID {
		h.bot.answerCallback(q.ID, "forbidden", true)
		return
	}

	if h.dedupe != nil && !h.dedupe.FirstSeen(ctx, q.ID) {
		slog.Debug("Skipping redelivered telegram callback", "callback_id", q.ID)
		return
	}

	action, id, err := parseCallbackData(q.Data)
	if err != nil {
		h.bot.answerCallback(q.ID, "Unknown action", true)
		return
	}

	var (
		req    *payment.Request
		status string
		answer string
	)
	switch action {
	case actionApprove:
		req, err = h.payments.Approve(id, reviewer)
		status = "✅ APPROVED by administrator"
	case actionReject:
		req, err = h.payments.Reject(id, reviewer)
		status = "❌ REJECTED by administrator"
	}

	if err != nil {
		switch {
		case errors.Is(err, payment.ErrRequestNotFound):
			h.bot.answerCallback(q.ID, "❌ Request not found", true)
		case errors.Is(err, payment.ErrAlreadyReviewed):
			h.bot.answerCallback(q.ID, "Request has already been reviewed", true)
		default:
			slog.Error("Failed to review payment request from telegram", "error", err, "request_id", id, "action", action)
			if h.dedupe != nil {
				h.dedupe.Forget(ctx, q.ID)
			}
			h.bot.answerCallback(q.ID, "Failed: "+err.Error(), true)
		}
		return
	}

	if action == actionApprove {
		answer = "✅ Access granted for " + req.Email
	} else {
		answer = "❌ Request rejected"
	}

	h.bot.editText(q.Message.Chat.ID, q.Message.MessageID, q.Message.Text+"\n\n"+status)
	h.bot.answerCallback(q.ID, answer, false)
}

func parseCallbackData(data string) (string, uint, error) {
	action, rawID, ok := strings.Cut(data, "_")
	if !ok || (action != actionApprove && action != actionReject) {
		return "", 0, fmt.Errorf("unknown callback data %q", data)
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return "", 0, fmt.Errorf("invalid request id in callback data %q", data)
	}
	return action, uint(id), nil
}

// RegisterWebhook answers POST /admin/telegram/webhook
func (h *WebhookHandler) RegisterWebhook(c *fiber.Ctx) error {
	resp, err := h.bot.SetWebhook()
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError)
	}
	return c.JSON(fiber.Map{
		"success":           resp.Ok,
		"telegram_response": resp,
		"webhook_url":       h.bot.webhookURL,
	})
}
