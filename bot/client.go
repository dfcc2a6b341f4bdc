// Package bot runs the Telegram bots: the seller bot that manages store
// reservations and the customer welcome bot.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vapecity/vapecity-api/metrics"
)

// Client is the part of *tgbotapi.BotAPI the bots use
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// ClientFactory connects to Telegram with a bot token
type ClientFactory func(token string) (Client, error)

// NewTelegramClient connects with the real Bot API
func NewTelegramClient(token string) (Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return api, nil
}

// UpdateHandler processes one update
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, client Client, update tgbotapi.Update)
}

// Poller long-polls one bot and feeds updates to its handler one at a time
type Poller struct {
	name    string
	client  Client
	handler UpdateHandler
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller; name labels logs and metrics
func NewPoller(name string, client Client, handler UpdateHandler, logger *slog.Logger) *Poller {
	return &Poller{
		name:    name,
		client:  client,
		handler: handler,
		logger:  logger.With("bot", name),
	}
}

// Start begins polling in the background
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := p.client.GetUpdatesChan(u)

	go func() {
		defer close(p.done)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				p.dispatch(ctx, update)
			}
		}
	}()
	p.logger.Info("telegram bot started")
}

// Stop ends polling and waits for the update in flight
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.client.StopReceivingUpdates()
	p.cancel()
	<-p.done
	p.logger.Info("telegram bot stopped")
}

func (p *Poller) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()
	p.handler.HandleUpdate(ctx, p.client, update)
}

// send delivers c and records the outcome. Failures are logged only.
func send(client Client, logger *slog.Logger, bot string, c tgbotapi.Chattable) bool {
	if _, err := client.Send(c); err != nil {
		metrics.Get().BotMessages.WithLabelValues(bot, "error").Inc()
		logger.Warn("failed to send telegram message", "bot", bot, "error", err)
		return false
	}
	metrics.Get().BotMessages.WithLabelValues(bot, "ok").Inc()
	return true
}

// answer acknowledges a callback query, optionally with a toast
func answer(client Client, logger *slog.Logger, queryID, text string) {
	if _, err := client.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		logger.Warn("failed to answer callback query", "error", err)
	}
}

func htmlMessage(chatID int64, text string, markup interface{}) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return msg
}
