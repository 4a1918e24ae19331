package builders

import (
	"fmt"

	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/notify"
)

type NotifierBuilder struct {
	config *config.Config
	logger *logger.Logger
}

func NewNotifierBuilder(cfg *config.Config, log *logger.Logger) *NotifierBuilder {
	return &NotifierBuilder{
		config: cfg,
		logger: log,
	}
}

// Build returns the log notifier, fanned out to Telegram when enabled.
func (b *NotifierBuilder) Build() (notify.Notifier, error) {
	notifiers := notify.Multi{notify.NewLogNotifier(b.logger)}

	if b.config.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegramNotifier(b.config.Notify.Telegram, b.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
		}
		notifiers = append(notifiers, tg)
		b.logger.Info("telegram notifications enabled",
			logger.Field{Key: "chat_id", Value: b.config.Notify.Telegram.ChatID},
			logger.Field{Key: "token", Value: b.config.MaskedTelegramToken()})
	}

	return notifiers, nil
}
