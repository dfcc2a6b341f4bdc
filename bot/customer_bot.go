package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const customerBotName = "customer"

const welcomeTemplate = `Привет, %s! 👋

Добро пожаловать в <b>VapeCity</b>, твой помощник для покупок в наших магазинах!

🎁 <b>Бонусная программа</b>
Копи баллы с каждой покупки и трать их на скидки. 1 балл = 1 рубль!

📦 <b>Бронирование товаров</b>
Выбери товар в приложении, забронируй и забери в удобное время. Никаких очередей!

🔍 <b>Каталог</b>
Смотри наличие товаров на всех точках города. Фильтруй по категориям и магазинам.

📍 <b>Наши точки</b>
Узнай адреса, часы работы и наличие товаров в каждом магазине.`

// CustomerBot greets customers and points them at the mini-app
type CustomerBot struct {
	webAppURL string
	sticker   string
	logger    *slog.Logger
}

// NewCustomerBot creates the customer update handler. Empty webAppURL or
// sticker disable the app button and the welcome sticker.
func NewCustomerBot(webAppURL, sticker string, logger *slog.Logger) *CustomerBot {
	return &CustomerBot{webAppURL: webAppURL, sticker: sticker, logger: logger.With("component", "customer_bot")}
}

// HandleUpdate implements UpdateHandler
func (b *CustomerBot) HandleUpdate(ctx context.Context, client Client, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.welcome(client, msg)
		}
		return
	}
	if msg.Text == "" {
		return
	}
	send(client, b.logger, customerBotName,
		tgbotapi.NewMessage(msg.Chat.ID, "👆 Нажми кнопку выше или напиши /start, чтобы открыть приложение!"))
}

func (b *CustomerBot) welcome(client Client, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	name := "друг"
	if msg.From != nil && msg.From.FirstName != "" {
		name = msg.From.FirstName
	}

	if b.sticker != "" {
		if _, err := client.Send(tgbotapi.NewSticker(chatID, tgbotapi.FileID(b.sticker))); err != nil {
			b.logger.Debug("failed to send welcome sticker", "error", err)
		}
	}

	text := fmt.Sprintf(welcomeTemplate, html.EscapeString(name))
	var markup interface{}
	if b.webAppURL != "" {
		text += "\n\nНажми кнопку <b>«Приложение»</b> ниже, чтобы начать! 🚀"
		markup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🛒 Приложение", b.webAppURL)),
		)
	}
	send(client, b.logger, customerBotName, htmlMessage(chatID, text, markup))
}
