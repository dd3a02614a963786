package telegram

import (
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/otebe/matrix/internal/config"
)

// ErrNoAdminChat is returned when a notification has nowhere to go
var ErrNoAdminChat = errors.New("telegram admin chat is not configured")

// Sender is the part of the Bot API client used here
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Bot talks to the admin chat
type Bot struct {
	api           Sender
	adminChatID   int64
	adminURL      string
	webhookURL    string
	webhookSecret string
}

// NewBot connects to the Bot API with the configured token
func NewBot(cfg config.TelegramConfig) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	api.Debug = false
	slog.Info("Telegram bot connected", "username", api.Self.UserName)
	return NewBotWithSender(api, cfg), nil
}

// NewBotWithSender builds a Bot on top of an existing client
func NewBotWithSender(api Sender, cfg config.TelegramConfig) *Bot {
	return &Bot{
		api:           api,
		adminChatID:   cfg.AdminChatID,
		adminURL:      cfg.AdminURL,
		webhookURL:    cfg.WebhookURL,
		webhookSecret: cfg.WebhookSecret,
	}
}

// WebhookSecret is the token Telegram echoes in X-Telegram-Bot-Api-Secret-Token
func (b *Bot) WebhookSecret() string {
	return b.webhookSecret
}

// SetWebhook points the bot at the configured webhook URL
func (b *Bot) SetWebhook() (*tgbotapi.APIResponse, error) {
	if b.webhookURL == "" {
		return nil, errors.New("telegram webhook url is not configured")
	}

	params := tgbotapi.Params{"url": b.webhookURL}
	params.AddNonEmpty("secret_token", b.webhookSecret)
	params["allowed_updates"] = `["message","callback_query"]`

	resp, err := b.api.MakeRequest("setWebhook", params)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook: %w", err)
	}
	slog.Info("Telegram webhook registered", "url", b.webhookURL)
	return resp, nil
}

func (b *Bot) answerCallback(id, text string, alert bool) {
	cb := tgbotapi.NewCallback(id, text)
	cb.ShowAlert = alert
	if _, err := b.api.Request(cb); err != nil {
		slog.Warn("Failed to answer telegram callback", "error", err, "callback_id", id)
	}
}

func (b *Bot) editText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.DisableWebPagePreview = true
	if _, err := b.api.Send(edit); err != nil {
		slog.Warn("Failed to edit telegram message", "error", err, "message_id", messageID)
	}
}
