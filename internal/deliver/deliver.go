// Package deliver sends completed results to target chats through a bot.
package deliver

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers one message to one chat on behalf of a bot.
type Sender interface {
	Send(ctx context.Context, botToken, chatID, text string) error
}

// Telegram implements Sender on the Telegram Bot API. Bot handles are cached
// per token since one tenant bot typically delivers to many chats.
type Telegram struct {
	mu   sync.Mutex
	bots map[string]*tgbotapi.BotAPI
}

// NewTelegram creates the Telegram sender.
func NewTelegram() *Telegram {
	return &Telegram{bots: make(map[string]*tgbotapi.BotAPI)}
}

func (t *Telegram) bot(token string) (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bot, ok := t.bots[token]; ok {
		return bot, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("deliver: init bot: %w", err)
	}
	t.bots[token] = bot
	return bot, nil
}

// Send posts text to chatID. Telegram chat ids are numeric.
func (t *Telegram) Send(ctx context.Context, botToken, chatID, text string) error {
	bot, err := t.bot(botToken)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("deliver: chat id %q: %w", chatID, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
		return fmt.Errorf("deliver: send to chat %s: %w", chatID, err)
	}
	return nil
}
