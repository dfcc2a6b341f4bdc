package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/services"
	"gorm.io/gorm"
)

const (
	sellerBotName = "seller"
	refusedAnswer = "⚠️ Нельзя изменить статус этой брони"
)

// SellerBot answers store sellers: greeting, order lists, order cards and
// the complete/cancel/confirm actions.
type SellerBot struct {
	db           *gorm.DB
	reservations *services.ReservationService
	logger       *slog.Logger
}

// NewSellerBot creates the seller update handler
func NewSellerBot(db *gorm.DB, reservations *services.ReservationService, logger *slog.Logger) *SellerBot {
	return &SellerBot{db: db, reservations: reservations, logger: logger}
}

// HandleUpdate implements UpdateHandler
func (b *SellerBot) HandleUpdate(ctx context.Context, client Client, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, client, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, client, update.Message)
	}
}

func (b *SellerBot) send(client Client, c tgbotapi.Chattable) {
	send(client, b.logger, sellerBotName, c)
}

func (b *SellerBot) sellerStores(ctx context.Context, telegramID int64) ([]models.Store, error) {
	var stores []models.Store
	err := b.db.WithContext(ctx).
		Joins("JOIN store_sellers ss ON ss.store_id = stores.id").
		Where("ss.telegram_id = ?", telegramID).
		Order("stores.id").
		Find(&stores).Error
	return stores, err
}

func (b *SellerBot) handleMessage(ctx context.Context, client Client, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	sellerID := chatID
	if msg.From != nil {
		sellerID = msg.From.ID
	}

	switch {
	case msg.IsCommand() && msg.Command() == "start":
		b.handleStart(ctx, client, chatID, sellerID)
	case msg.Text == buttonReservations:
		b.handleList(ctx, client, chatID, sellerID, services.ScopeToday)
	case msg.Text == buttonActive:
		b.handleList(ctx, client, chatID, sellerID, services.ScopeActive)
	}
}

func (b *SellerBot) handleStart(ctx context.Context, client Client, chatID, sellerID int64) {
	stores, err := b.sellerStores(ctx, sellerID)
	if err != nil {
		b.logger.Error("failed to load seller stores", "telegram_id", sellerID, "error", err)
		return
	}

	var text strings.Builder
	text.WriteString("👋 <b>Привет!</b>\n\n")
	text.WriteString("Я бот VapeCity для продавцов. Буду присылать тебе уведомления о новых бронях, ")
	text.WriteString("чтобы ты всегда знал, когда клиент придёт за заказом.\n\n")
	if len(stores) > 0 {
		text.WriteString("📍 <b>Твои точки:</b>\n")
		for _, s := range stores {
			fmt.Fprintf(&text, "• %s\n", html.EscapeString(storeLabel(s)))
		}
		text.WriteString("\nИспользуй кнопки внизу, чтобы посмотреть текущие брони.")
	} else {
		text.WriteString("⚠️ Ты пока не привязан ни к одной точке. Попроси администратора добавить тебя в систему.")
	}

	b.send(client, htmlMessage(chatID, text.String(), mainKeyboard()))
}

func listTitle(scope services.Scope, count int) string {
	if scope == services.ScopeActive {
		return fmt.Sprintf("🗂 <b>Активные брони (%d)</b>", count)
	}
	return fmt.Sprintf("📋 <b>Брони на сегодня (%d)</b>", count)
}

func (b *SellerBot) storeCounts(ctx context.Context, stores []models.Store, scope services.Scope) ([]storeCount, int64, error) {
	counts := make([]storeCount, 0, len(stores))
	var total int64
	for _, s := range stores {
		n, err := b.reservations.CountOpenForStore(ctx, s.ID, scope)
		if err != nil {
			return nil, 0, err
		}
		counts = append(counts, storeCount{Store: s, Count: n})
		total += n
	}
	return counts, total, nil
}

func (b *SellerBot) handleList(ctx context.Context, client Client, chatID, sellerID int64, scope services.Scope) {
	stores, err := b.sellerStores(ctx, sellerID)
	if err != nil {
		b.logger.Error("failed to load seller stores", "telegram_id", sellerID, "error", err)
		return
	}
	if len(stores) == 0 {
		b.send(client, htmlMessage(chatID, "⚠️ Ты не привязан ни к одной точке", mainKeyboard()))
		return
	}

	counts, total, err := b.storeCounts(ctx, stores, scope)
	if err != nil {
		b.logger.Error("failed to count reservations", "telegram_id", sellerID, "error", err)
		return
	}
	if total == 0 {
		empty := "📭 Сегодня броней нет"
		if scope == services.ScopeActive {
			empty = "📭 Активных броней нет"
		}
		b.send(client, htmlMessage(chatID, empty, mainKeyboard()))
		return
	}

	if len(stores) == 1 {
		b.sendList(ctx, client, chatID, stores[0].ID, scope, 0)
		return
	}
	b.send(client, htmlMessage(chatID, "📋 <b>Выбери точку:</b>", storePickerKeyboard(counts, scope)))
}

// sendList sends one page of a store's open reservations. It reports
// false when the list is empty.
func (b *SellerBot) sendList(ctx context.Context, client Client, chatID int64, storeID uint, scope services.Scope, page int) bool {
	list, err := b.reservations.OpenForStore(ctx, storeID, scope)
	if err != nil {
		b.logger.Error("failed to list reservations", "store_id", storeID, "error", err)
		return false
	}
	if len(list) == 0 {
		return false
	}
	b.send(client, htmlMessage(chatID, listTitle(scope, len(list)), reservationListKeyboard(list, page, scope, storeID)))
	return true
}

func (b *SellerBot) handleCallback(ctx context.Context, client Client, query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.From == nil {
		answer(client, b.logger, query.ID, "")
		return
	}
	chatID := query.Message.Chat.ID
	sellerID := query.From.ID

	cb, err := ParseCallback(query.Data)
	if err != nil {
		answer(client, b.logger, query.ID, "Неизвестная команда")
		return
	}
	if cb.Action == ActionNoop {
		answer(client, b.logger, query.ID, "")
		return
	}

	stores, err := b.sellerStores(ctx, sellerID)
	if err != nil {
		b.logger.Error("failed to load seller stores", "telegram_id", sellerID, "error", err)
		answer(client, b.logger, query.ID, "Ошибка, попробуй ещё раз")
		return
	}
	allowed := make(map[uint]bool, len(stores))
	for _, s := range stores {
		allowed[s.ID] = true
	}
	if cb.StoreID != 0 && !allowed[cb.StoreID] {
		answer(client, b.logger, query.ID, "⛔ Нет доступа к этой точке")
		return
	}

	var details *services.ReservationDetails
	if cb.ReservationID != 0 {
		details, err = b.reservations.GetByID(ctx, cb.ReservationID)
		if errors.Is(err, services.ErrNotFound) {
			answer(client, b.logger, query.ID, "Бронь не найдена")
			return
		}
		if err != nil {
			b.logger.Error("failed to load reservation", "reservation_id", cb.ReservationID, "error", err)
			answer(client, b.logger, query.ID, "Ошибка, попробуй ещё раз")
			return
		}
		if details.StoreID == nil || !allowed[*details.StoreID] {
			answer(client, b.logger, query.ID, "⛔ Нет доступа к этой брони")
			return
		}
	}

	flow := b.reservations.Flow()
	words := wordingFor(flow)
	switch cb.Action {
	case ActionStore, ActionPage:
		if !b.sendList(ctx, client, chatID, cb.StoreID, cb.Scope, cb.Page) {
			answer(client, b.logger, query.ID, "Нет броней")
			return
		}
		answer(client, b.logger, query.ID, "")

	case ActionBack:
		counts, _, err := b.storeCounts(ctx, stores, cb.Scope)
		if err != nil {
			b.logger.Error("failed to count reservations", "telegram_id", sellerID, "error", err)
			answer(client, b.logger, query.ID, "Ошибка, попробуй ещё раз")
			return
		}
		b.send(client, htmlMessage(chatID, "📋 <b>Выбери точку:</b>", storePickerKeyboard(counts, cb.Scope)))
		answer(client, b.logger, query.ID, "")

	case ActionView:
		b.send(client, htmlMessage(chatID, formatReservation(details, flow),
			reservationActionsKeyboard(flow, details.Status, cb.ReservationID, cb.Scope, cb.StoreID)))
		answer(client, b.logger, query.ID, "")

	case ActionAskComplete:
		if !flow.Completes(details.Status) {
			answer(client, b.logger, query.ID, refusedAnswer)
			return
		}
		b.send(client, htmlMessage(chatID, words.completeQuestion,
			confirmKeyboard(flow, ActionComplete, cb.ReservationID, cb.Scope, cb.StoreID)))
		answer(client, b.logger, query.ID, "")

	case ActionAskCancel:
		b.send(client, htmlMessage(chatID, words.cancelQuestion,
			confirmKeyboard(flow, ActionCancel, cb.ReservationID, cb.Scope, cb.StoreID)))
		answer(client, b.logger, query.ID, "")

	case ActionComplete:
		if !flow.Completes(details.Status) {
			answer(client, b.logger, query.ID, refusedAnswer)
			return
		}
		if !b.changeStatus(ctx, client, query.ID, cb.ReservationID, flow.Complete) {
			return
		}
		answer(client, b.logger, query.ID, words.completeAnswer)
		back := tgbotapi.NewInlineKeyboardMarkup(backToListRow(cb.Scope, cb.StoreID))
		b.send(client, htmlMessage(chatID, words.completeDone, back))

	case ActionCancel:
		if !b.changeStatus(ctx, client, query.ID, cb.ReservationID, models.StatusCancelled) {
			return
		}
		answer(client, b.logger, query.ID, "❌ Бронь отменена")
		back := tgbotapi.NewInlineKeyboardMarkup(backToListRow(cb.Scope, cb.StoreID))
		b.send(client, htmlMessage(chatID, "❌ <b>Бронь отменена</b>", back))

	case ActionConfirm:
		if !flow.Accepts(details.Status) {
			answer(client, b.logger, query.ID, refusedAnswer)
			return
		}
		if !b.changeStatus(ctx, client, query.ID, cb.ReservationID, models.StatusConfirmed) {
			return
		}
		answer(client, b.logger, query.ID, words.acceptAnswer)
		b.send(client, htmlMessage(chatID, words.acceptDone, nil))
	}
}

// changeStatus applies a seller action; on failure it answers the query
// with the reason and reports false.
func (b *SellerBot) changeStatus(ctx context.Context, client Client, queryID string, id uint, status models.OrderStatus) bool {
	_, err := b.reservations.UpdateStatus(ctx, id, services.StatusChange{Status: status, Operator: true})
	switch {
	case err == nil:
		return true
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrValidation):
		answer(client, b.logger, queryID, refusedAnswer)
	default:
		b.logger.Error("failed to update reservation", "reservation_id", id, "status", status, "error", err)
		answer(client, b.logger, queryID, "Ошибка, попробуй ещё раз")
	}
	return false
}
