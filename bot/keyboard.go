package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/services"
)

const (
	// PageSize is how many reservations one list page shows
	PageSize = 9
	rowSize  = 3

	buttonReservations = "📋 Брони"
	buttonActive       = "🗂 Все активные"
)

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonReservations),
			tgbotapi.NewKeyboardButton(buttonActive),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

var statusIcons = map[models.OrderStatus]string{
	models.StatusPending:      "⏳",
	models.StatusPaymentCheck: "💳",
	models.StatusConfirmed:    "✅",
	models.StatusShipped:      "🚚",
}

func statusIcon(s models.OrderStatus) string {
	if icon, ok := statusIcons[s]; ok {
		return icon
	}
	return "•"
}

// pageCount returns the number of pages for n items, at least one
func pageCount(n int) int {
	if n <= PageSize {
		return 1
	}
	return (n + PageSize - 1) / PageSize
}

// reservationListKeyboard renders one page of reservations, 3 per row,
// followed by the page navigation and a way back to the store picker.
func reservationListKeyboard(list []models.Reservation, page int, scope services.Scope, storeID uint) tgbotapi.InlineKeyboardMarkup {
	pages := pageCount(len(list))
	if page < 0 {
		page = 0
	}
	if page > pages-1 {
		page = pages - 1
	}

	start := page * PageSize
	end := start + PageSize
	if end > len(list) {
		end = len(list)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, r := range list[start:end] {
		data := Callback{Action: ActionView, ReservationID: r.ID, Scope: scope, StoreID: storeID}.MustEncode()
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(r.OrderNumber+" "+statusIcon(r.Status), data))
		if len(row) == rowSize {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if pages > 1 {
		var nav []tgbotapi.InlineKeyboardButton
		if page > 0 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀️ Назад",
				Callback{Action: ActionPage, Scope: scope, StoreID: storeID, Page: page - 1}.MustEncode()))
		}
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d/%d", page+1, pages), ActionNoop))
		if page < pages-1 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Вперёд ▶️",
				Callback{Action: ActionPage, Scope: scope, StoreID: storeID, Page: page + 1}.MustEncode()))
		}
		rows = append(rows, nav)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("« К точкам", Callback{Action: ActionBack, Scope: scope}.MustEncode()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

type storeCount struct {
	Store models.Store
	Count int64
}

func storePickerKeyboard(stores []storeCount, scope services.Scope) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(stores))
	for _, sc := range stores {
		label := fmt.Sprintf("📍 %s (%d)", storeLabel(sc.Store), sc.Count)
		data := Callback{Action: ActionStore, Scope: scope, StoreID: sc.Store.ID}.MustEncode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func storeLabel(s models.Store) string {
	if s.Address != "" {
		return s.Address
	}
	return s.Name
}

// wording holds the seller texts that differ between the two flows
type wording struct {
	completeButton   string
	completeQuestion string
	completeYes      string
	completeAnswer   string
	completeDone     string
	cancelQuestion   string
	acceptAnswer     string
	acceptDone       string
}

var pickupWording = wording{
	completeButton:   "✅ Выдать",
	completeQuestion: "❓ <b>Точно выдать заказ?</b>\n\nКлиент забрал товар?",
	completeYes:      "✅ Да, выдать",
	completeAnswer:   "✅ Заказ выдан!",
	completeDone:     "🎉 <b>Заказ выдан!</b>\n\nОтличная работа!",
	cancelQuestion:   "❓ <b>Точно отменить бронь?</b>\n\nКлиент не придёт?",
	acceptAnswer:     "✅ Бронь подтверждена!",
	acceptDone:       "✅ <b>Бронь подтверждена!</b>\n\nКлиент ждёт.",
}

var deliveryWording = wording{
	completeButton:   "📦 Доставлен",
	completeQuestion: "❓ <b>Точно отметить доставленным?</b>\n\nКлиент получил посылку?",
	completeYes:      "✅ Да, доставлен",
	completeAnswer:   "📬 Заказ доставлен!",
	completeDone:     "📬 <b>Заказ доставлен!</b>\n\nОтличная работа!",
	cancelQuestion:   "❓ <b>Точно отменить заказ?</b>\n\nЗаказ не будет отправлен?",
	acceptAnswer:     "✅ Оплата подтверждена!",
	acceptDone:       "✅ <b>Оплата подтверждена!</b>\n\nЗаказ можно отправлять.",
}

func wordingFor(flow *models.OrderFlow) wording {
	if flow.Delivery {
		return deliveryWording
	}
	return pickupWording
}

func backToListRow(scope services.Scope, storeID uint) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("« Назад к броням",
		Callback{Action: ActionStore, Scope: scope, StoreID: storeID}.MustEncode()))
}

// reservationActionsKeyboard offers the next step the order can take: complete
// when the flow allows it from status, accept otherwise, and cancel while the
// order is open.
func reservationActionsKeyboard(flow *models.OrderFlow, status models.OrderStatus, id uint, scope services.Scope, storeID uint) tgbotapi.InlineKeyboardMarkup {
	base := Callback{ReservationID: id, Scope: scope, StoreID: storeID}
	askComplete, askCancel := base, base
	askComplete.Action = ActionAskComplete
	askCancel.Action = ActionAskCancel

	var actions []tgbotapi.InlineKeyboardButton
	switch {
	case flow.Completes(status):
		actions = append(actions, tgbotapi.NewInlineKeyboardButtonData(wordingFor(flow).completeButton, askComplete.MustEncode()))
	case flow.Accepts(status):
		actions = append(actions, tgbotapi.NewInlineKeyboardButtonData("✅ Принять",
			Callback{Action: ActionConfirm, ReservationID: id}.MustEncode()))
	}
	if !flow.IsTerminal(status) {
		actions = append(actions, tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", askCancel.MustEncode()))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if len(actions) > 0 {
		rows = append(rows, actions)
	}
	rows = append(rows, backToListRow(scope, storeID))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// confirmKeyboard asks "yes/no" before action runs; "no" returns to the card
func confirmKeyboard(flow *models.OrderFlow, action string, id uint, scope services.Scope, storeID uint) tgbotapi.InlineKeyboardMarkup {
	yes := Callback{Action: action, ReservationID: id, Scope: scope, StoreID: storeID}
	no := Callback{Action: ActionView, ReservationID: id, Scope: scope, StoreID: storeID}

	yesLabel := wordingFor(flow).completeYes
	if action == ActionCancel {
		yesLabel = "✅ Да, отменить"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(yesLabel, yes.MustEncode()),
			tgbotapi.NewInlineKeyboardButtonData("❌ Нет", no.MustEncode()),
		),
	)
}

// notificationKeyboard always links to the card; "accept" is offered only
// when the order is in the status the flow accepts from.
func notificationKeyboard(flow *models.OrderFlow, status models.OrderStatus, id, storeID uint) tgbotapi.InlineKeyboardMarkup {
	row := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("👁 Подробнее",
			Callback{Action: ActionView, ReservationID: id, Scope: services.ScopeToday, StoreID: storeID}.MustEncode()),
	)
	if flow.Accepts(status) {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅ Принять",
			Callback{Action: ActionConfirm, ReservationID: id}.MustEncode()))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}
