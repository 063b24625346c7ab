package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Notifier defines the interface for a Telegram notifier.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
	SendMessageUser(ctx context.Context, text string, telegramID int64) error
}

// client is an implementation of Notifier.
type client struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
}

// NewClient creates a new Telegram notifier client. Sends are rate limited to
// maxPerSecond to stay under the Bot API limits.
func NewClient(botToken string, chatID int64, maxPerSecond int) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	if maxPerSecond <= 0 {
		maxPerSecond = 25
	}
	return &client{
		bot:     bot,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(maxPerSecond), maxPerSecond),
	}, nil
}

// SendMessage sends a message to the configured broadcast chat.
func (c *client) SendMessage(ctx context.Context, text string) error {
	return c.send(ctx, text, c.chatID)
}

// SendMessageUser sends a message to a specific user chat.
func (c *client) SendMessageUser(ctx context.Context, text string, telegramID int64) error {
	return c.send(ctx, text, telegramID)
}

func (c *client) send(ctx context.Context, text string, chatID int64) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := c.bot.Send(msg)
	return err
}
