package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/services"
)

func rub(d decimal.Decimal) string {
	return d.String() + " ₽"
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

// formatReservation renders the seller's order card
func formatReservation(d *services.ReservationDetails, flow *models.OrderFlow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆔 <b>Бронь %s</b>\n", html.EscapeString(d.OrderNumber))
	fmt.Fprintf(&b, "📊 Статус: %s\n", d.Status.Label())
	if d.FormattedDate != "" {
		fmt.Fprintf(&b, "🗓 %s\n", d.FormattedDate)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "👤 <b>Клиент:</b> %s\n", html.EscapeString(fullName(d.FirstName, d.LastName)))
	if d.UserPhone != "" {
		fmt.Fprintf(&b, "📱 %s\n", html.EscapeString(d.UserPhone))
	}
	username := d.Username
	if username == "" {
		username = d.TelegramUsername
	}
	if username != "" {
		fmt.Fprintf(&b, "💬 @%s\n", html.EscapeString(username))
	}
	b.WriteString("\n")

	if flow.Delivery {
		fmt.Fprintf(&b, "🚚 <b>Доставка:</b> %s (%s)\n", html.EscapeString(d.DeliveryMethod), rub(d.DeliveryPrice))
		fmt.Fprintf(&b, "📦 %s, %s\n", html.EscapeString(d.RecipientName), html.EscapeString(d.RecipientPhone))
		address := strings.Join(nonEmpty(d.RecipientPostal, d.RecipientCity, d.RecipientAddress), ", ")
		fmt.Fprintf(&b, "🏠 %s\n", html.EscapeString(address))
		if d.RecipientComment != "" {
			fmt.Fprintf(&b, "📝 %s\n", html.EscapeString(d.RecipientComment))
		}
		if d.ShippingInfo != "" {
			fmt.Fprintf(&b, "🔢 Трек: %s\n", html.EscapeString(d.ShippingInfo))
		}
	} else {
		fmt.Fprintf(&b, "⏰ <b>Время:</b> %s — %s\n", html.EscapeString(d.PickupTimeFrom), html.EscapeString(d.PickupTimeTo))
		fmt.Fprintf(&b, "📍 <b>Точка:</b> %s\n", html.EscapeString(firstNonEmpty(d.StoreAddress, d.StoreName)))
	}
	b.WriteString("\n")

	if len(d.Items) > 0 {
		b.WriteString("🛒 <b>Товары:</b>\n")
		for _, item := range d.Items {
			fmt.Fprintf(&b, "• %s ×%d — %s\n", html.EscapeString(item.ProductName), item.Quantity, rub(item.LineTotal()))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "💰 <b>Итого: %s</b>", rub(d.TotalPrice))
	return b.String()
}

// formatNotification renders the short new-order push
func formatNotification(d *services.ReservationDetails, flow *models.OrderFlow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 <b>Новая бронь %s</b>\n\n", html.EscapeString(d.OrderNumber))
	fmt.Fprintf(&b, "👤 %s\n", html.EscapeString(fullName(d.FirstName, d.LastName)))
	if flow.Delivery {
		fmt.Fprintf(&b, "🚚 %s, %s\n", html.EscapeString(d.DeliveryMethod), html.EscapeString(d.RecipientCity))
	} else {
		fmt.Fprintf(&b, "⏰ %s — %s\n", html.EscapeString(d.PickupTimeFrom), html.EscapeString(d.PickupTimeTo))
	}
	fmt.Fprintf(&b, "📍 %s\n", html.EscapeString(firstNonEmpty(d.StoreAddress, d.StoreName)))
	fmt.Fprintf(&b, "💰 <b>%s</b>", rub(d.TotalPrice))
	return b.String()
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
