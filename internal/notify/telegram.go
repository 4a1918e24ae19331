package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/mymmrac/telego"

	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/retry"
)

// BotAPI is the subset of the Telegram bot API used by TelegramNotifier.
// *telego.Bot satisfies it.
type BotAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// TelegramNotifier sends notifications to a single Telegram chat.
type TelegramNotifier struct {
	bot     BotAPI
	chatID  int64
	timeout time.Duration
	retry   retry.Config
	logger  *logger.Logger
}

// NewTelegramNotifier creates a notifier backed by a real bot.
func NewTelegramNotifier(cfg config.TelegramConfig, log *logger.Logger) (*TelegramNotifier, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required")
	}

	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	return NewTelegramNotifierWithBot(bot, cfg.ChatID, time.Duration(cfg.SendTimeoutSeconds)*time.Second, log), nil
}

// NewTelegramNotifierWithBot creates a notifier with an explicit bot.
func NewTelegramNotifierWithBot(bot BotAPI, chatID int64, timeout time.Duration, log *logger.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelegramNotifier{
		bot:     bot,
		chatID:  chatID,
		timeout: timeout,
		logger:  log,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, msg Message) error {
	params := &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: n.chatID},
		Text:      formatHTML(msg),
		ParseMode: telego.ModeHTML,
	}

	err := retry.Do(ctx, n.retry, n.logger, func(ctx context.Context) error {
		sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		_, err := n.bot.SendMessage(sendCtx, params)
		return err
	})
	if err != nil {
		return fmt.Errorf("telegram notify: %w", err)
	}
	return nil
}

func formatHTML(msg Message) string {
	icon := "ℹ️"
	if msg.Level == LevelError {
		icon = "⚠️"
	}
	if msg.Title == "" {
		return icon + " " + html.EscapeString(msg.Text)
	}
	return fmt.Sprintf("%s <b>%s</b>\n%s", icon, html.EscapeString(msg.Title), html.EscapeString(msg.Text))
}
