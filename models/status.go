package models

import (
	"fmt"
	"slices"
	"strings"
)

// OrderStatus is the lifecycle state of a reservation
type OrderStatus string

const (
	StatusPending      OrderStatus = "pending"
	StatusPaymentCheck OrderStatus = "payment_check"
	StatusConfirmed    OrderStatus = "confirmed"
	StatusShipped      OrderStatus = "shipped"
	StatusDelivered    OrderStatus = "delivered"
	StatusCompleted    OrderStatus = "completed"
	StatusCancelled    OrderStatus = "cancelled"
)

// OrderFlow is one of the two mutually exclusive order lifecycles. A
// deployment runs exactly one of them.
type OrderFlow struct {
	Name     string
	Statuses []OrderStatus
	// Complete is the status an operator's "complete" action moves to.
	Complete OrderStatus
	// Receipts reports whether customers upload payment receipts.
	Receipts bool
	// Delivery reports whether orders are shipped to a recipient.
	Delivery    bool
	transitions map[OrderStatus][]OrderStatus
}

// DeliveryFlow ships orders: pending → payment_check → confirmed → shipped → delivered.
var DeliveryFlow = &OrderFlow{
	Name:     "delivery",
	Statuses: []OrderStatus{StatusPending, StatusPaymentCheck, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled},
	Complete: StatusDelivered,
	Receipts: true,
	Delivery: true,
	transitions: map[OrderStatus][]OrderStatus{
		StatusPending:      {StatusPaymentCheck, StatusConfirmed, StatusCancelled},
		StatusPaymentCheck: {StatusPending, StatusConfirmed, StatusCancelled},
		StatusConfirmed:    {StatusShipped, StatusCancelled},
		StatusShipped:      {StatusDelivered, StatusCancelled},
	},
}

// PickupFlow holds goods at a store: pending → confirmed → completed.
var PickupFlow = &OrderFlow{
	Name:     "pickup",
	Statuses: []OrderStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled},
	Complete: StatusCompleted,
	transitions: map[OrderStatus][]OrderStatus{
		StatusPending:   {StatusConfirmed, StatusCompleted, StatusCancelled},
		StatusConfirmed: {StatusCompleted, StatusCancelled},
	},
}

// FlowByName returns the flow configured by ORDER_FLOW
func FlowByName(name string) (*OrderFlow, error) {
	switch name {
	case DeliveryFlow.Name:
		return DeliveryFlow, nil
	case PickupFlow.Name:
		return PickupFlow, nil
	default:
		return nil, fmt.Errorf("unknown order flow %q", name)
	}
}

// IsValid reports whether s belongs to the flow
func (f *OrderFlow) IsValid(s OrderStatus) bool {
	return slices.Contains(f.Statuses, s)
}

// IsTerminal reports whether no transition leaves s
func (f *OrderFlow) IsTerminal(s OrderStatus) bool {
	return len(f.transitions[s]) == 0
}

// CanTransition reports whether from → to is allowed. Staying in the same
// non-terminal status is allowed so operators can amend shipping info.
func (f *OrderFlow) CanTransition(from, to OrderStatus) bool {
	if !f.IsValid(from) || !f.IsValid(to) {
		return false
	}
	if from == to {
		return !f.IsTerminal(from)
	}
	return slices.Contains(f.transitions[from], to)
}

// Accepts reports whether a seller's "accept" applies to s. Delivery
// orders are accepted only once a payment receipt is under review.
func (f *OrderFlow) Accepts(s OrderStatus) bool {
	if f.Receipts {
		return s == StatusPaymentCheck
	}
	return s == StatusPending
}

// Completes reports whether the "complete" action can move s to f.Complete
func (f *OrderFlow) Completes(s OrderStatus) bool {
	return s != f.Complete && f.CanTransition(s, f.Complete)
}

// Open returns the non-terminal statuses in lifecycle order
func (f *OrderFlow) Open() []OrderStatus {
	open := make([]OrderStatus, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		if !f.IsTerminal(s) {
			open = append(open, s)
		}
	}
	return open
}

// ParseStatuses splits a comma-separated status filter and keeps the
// values that belong to the flow.
func (f *OrderFlow) ParseStatuses(csv string) []OrderStatus {
	var out []OrderStatus
	for _, part := range strings.Split(csv, ",") {
		s := OrderStatus(strings.TrimSpace(part))
		if f.IsValid(s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// ExpirableStatuses are cancelled by the daily sweep once their day is over.
var ExpirableStatuses = []OrderStatus{StatusPending, StatusConfirmed}

var statusLabels = map[OrderStatus]string{
	StatusPending:      "⏳ Ожидает",
	StatusPaymentCheck: "💳 Проверка оплаты",
	StatusConfirmed:    "✅ Подтверждён",
	StatusShipped:      "🚚 Отправлен",
	StatusDelivered:    "📬 Доставлен",
	StatusCompleted:    "🎉 Выдан",
	StatusCancelled:    "❌ Отменён",
}

// Label returns the Russian label shown to sellers and customers
func (s OrderStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}
