package config

import (
	"strings"
)

// maskSecret маскирует секрет, оставляя только первые 4 и последние 4 символа
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	if len(secret) < 8 {
		return "***"
	}

	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// maskTelegramToken маскирует Telegram токен для отображения в ошибках и логах.
// bot_id остаётся видимым для диагностики.
func maskTelegramToken(token string) string {
	if token == "" {
		return ""
	}

	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return maskSecret(token)
	}

	return parts[0] + ":" + maskSecret(parts[1])
}

// MaskedTelegramToken returns the notify token in a form safe for logs.
func (c *Config) MaskedTelegramToken() string {
	return maskTelegramToken(c.Notify.Telegram.Token)
}
