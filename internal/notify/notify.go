// Package notify delivers user-visible notifications: configuration errors
// and scheduled trigger confirmations.
package notify

import (
	"context"
	"errors"

	"github.com/aatumaykin/agentpilot/internal/logger"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Message is a single notification.
type Message struct {
	Level Level
	Title string
	Text  string
}

// Notifier delivers messages to the user.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, msg Message) error

func (f Func) Notify(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	fields := []logger.Field{
		{Key: "title", Value: msg.Title},
		{Key: "text", Value: msg.Text},
	}
	if msg.Level == LevelError {
		n.logger.WarnCtx(ctx, "notification", fields...)
		return nil
	}
	n.logger.InfoCtx(ctx, "notification", fields...)
	return nil
}

// Multi fans a message out to every notifier. All notifiers are tried; the
// errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }
