package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/retry"
)

// MockBot is a testify mock of BotAPI.
type MockBot struct {
	mock.Mock
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.Message), args.Error(1)
}

func TestTelegramNotifier_Sends(t *testing.T) {
	bot := new(MockBot)
	bot.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *telego.SendMessageParams) bool {
		return p.ChatID.ID == 42 &&
			p.ParseMode == telego.ModeHTML &&
			p.Text == "⚠️ <b>Unsupported IDE</b>\nide &lt;vscode&gt; has no tabs"
	})).Return(&telego.Message{}, nil).Once()

	n := NewTelegramNotifierWithBot(bot, 42, time.Second, logger.Nop())
	err := n.Notify(context.Background(), Message{
		Level: LevelError,
		Title: "Unsupported IDE",
		Text:  "ide <vscode> has no tabs",
	})

	require.NoError(t, err)
	bot.AssertExpectations(t)
}

func TestTelegramNotifier_RetriesTransientErrors(t *testing.T) {
	bot := new(MockBot)
	bot.On("SendMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("api: 429 Too Many Requests")).Once()
	bot.On("SendMessage", mock.Anything, mock.Anything).
		Return(&telego.Message{}, nil).Once()

	n := NewTelegramNotifierWithBot(bot, 1, time.Second, logger.Nop())
	n.retry = retry.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	require.NoError(t, n.Notify(context.Background(), Message{Text: "hello"}))
	bot.AssertNumberOfCalls(t, "SendMessage", 2)
}

func TestTelegramNotifier_PermanentError(t *testing.T) {
	bot := new(MockBot)
	bot.On("SendMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("api: 403 Forbidden: bot was blocked by the user"))

	n := NewTelegramNotifierWithBot(bot, 1, time.Second, logger.Nop())
	err := n.Notify(context.Background(), Message{Text: "hello"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram notify")
	bot.AssertNumberOfCalls(t, "SendMessage", 1)
}

func TestNewTelegramNotifier_Validation(t *testing.T) {
	_, err := NewTelegramNotifier(config.TelegramConfig{ChatID: 1}, logger.Nop())
	assert.Error(t, err)

	_, err = NewTelegramNotifier(config.TelegramConfig{Token: "123456:ABC"}, logger.Nop())
	assert.Error(t, err)
}

func TestFormatHTML(t *testing.T) {
	assert.Equal(t, "ℹ️ a &amp; b", formatHTML(Message{Text: "a & b"}))
	assert.Equal(t, "ℹ️ <b>Title</b>\nbody", formatHTML(Message{Level: LevelInfo, Title: "Title", Text: "body"}))
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	var got []string
	ok := Func(func(ctx context.Context, msg Message) error {
		got = append(got, "ok:"+msg.Text)
		return nil
	})
	failing := Func(func(ctx context.Context, msg Message) error {
		got = append(got, "fail:"+msg.Text)
		return errors.New("down")
	})

	err := Multi{failing, nil, ok}.Notify(context.Background(), Message{Text: "x"})

	assert.EqualError(t, err, "down")
	assert.Equal(t, []string{"fail:x", "ok:x"}, got)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(logger.Nop())
	assert.NoError(t, n.Notify(context.Background(), Message{Level: LevelError, Text: "x"}))
	assert.NoError(t, n.Notify(context.Background(), Message{Level: LevelInfo, Text: "y"}))
	assert.NoError(t, Nop{}.Notify(context.Background(), Message{}))
}
