// Package gateway runs the Telegram front end of the bot.
package gateway

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mrwersa/saba-pharma-bot/internal/pharma"
	"github.com/mrwersa/saba-pharma-bot/internal/present"
)

// Lookup is the slice of the batch coordinator the gateway depends on.
type Lookup interface {
	Lookup(ctx context.Context, query string) (pharma.BatchResult, error)
}

// sender abstracts the Telegram send call so update handling is testable.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot receives Telegram updates and replies with lookup results. The bot
// keeps no conversation state: every message is an independent lookup.
type Bot struct {
	api     *tgbotapi.BotAPI
	out     sender
	lookups Lookup
	logger  *zap.Logger
}

// New connects to the Telegram API with the given token.
func New(token string, lookups Lookup, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))
	return &Bot{api: api, out: api, lookups: lookups, logger: logger}, nil
}

// Run consumes updates via long polling until the context finishes.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	msg := update.Message

	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, present.Greeting())
		return
	case "help":
		b.reply(msg.Chat.ID, present.Help())
		return
	}

	query := msg.Text
	b.reply(msg.Chat.ID, present.Searching(query))

	result, err := b.lookups.Lookup(ctx, query)
	if err != nil {
		var vErr *pharma.ValidationError
		if errors.As(err, &vErr) {
			b.reply(msg.Chat.ID, present.ValidationFailure(vErr))
			return
		}
		b.logger.Error("lookup failed", zap.String("query", query), zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	b.reply(msg.Chat.ID, present.Batch(result))
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.out.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
