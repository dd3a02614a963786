package telegram

import (
	"fmt"
	"os"

	"github.com/otebe/matrix/internal/cli"
	bot "github.com/otebe/matrix/internal/telegram"
)

// Command implements Telegram bot setup
type Command struct{}

func (c *Command) Name() string {
	return "telegram"
}

func (c *Command) Description() string {
	return "Telegram bot setup (set-webhook)"
}

func (c *Command) Run(args []string) error {
	if len(args) < 1 || args[0] != "set-webhook" {
		fmt.Fprintf(os.Stderr, "Usage: matrix-cli telegram set-webhook\n")
		if len(args) < 1 {
			return fmt.Errorf("subcommand required")
		}
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}

	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.Telegram.Enabled() {
		return fmt.Errorf("telegram.bot_token is not configured")
	}

	b, err := bot.NewBot(cfg.Telegram)
	if err != nil {
		return err
	}

	resp, err := b.SetWebhook()
	if err != nil {
		return err
	}
	fmt.Printf("Webhook set to %s (ok=%t) %s\n", cfg.Telegram.WebhookURL, resp.Ok, resp.Description)
	return nil
}
