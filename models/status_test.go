package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowByName(t *testing.T) {
	flow, err := FlowByName("delivery")
	require.NoError(t, err)
	assert.Same(t, DeliveryFlow, flow)

	flow, err = FlowByName("pickup")
	require.NoError(t, err)
	assert.Same(t, PickupFlow, flow)

	_, err = FlowByName("courier")
	assert.Error(t, err)
}

func TestFlowsAreMutuallyExclusive(t *testing.T) {
	assert.False(t, DeliveryFlow.IsValid(StatusCompleted))
	assert.False(t, PickupFlow.IsValid(StatusPaymentCheck))
	assert.False(t, PickupFlow.IsValid(StatusShipped))
	assert.False(t, DeliveryFlow.IsValid("archived"))
}

func TestDeliveryTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusPaymentCheck, true},
		{StatusPending, StatusConfirmed, true},
		{StatusPaymentCheck, StatusConfirmed, true},
		{StatusPaymentCheck, StatusPending, true},
		{StatusConfirmed, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusShipped, true},
		{StatusPending, StatusShipped, false},
		{StatusConfirmed, StatusDelivered, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusPending, StatusCompleted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeliveryFlow.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	for _, s := range DeliveryFlow.Open() {
		assert.True(t, DeliveryFlow.CanTransition(s, StatusCancelled), "cancel from %s", s)
	}
}

func TestPickupTransitions(t *testing.T) {
	assert.True(t, PickupFlow.CanTransition(StatusPending, StatusConfirmed))
	assert.True(t, PickupFlow.CanTransition(StatusConfirmed, StatusCompleted))
	assert.True(t, PickupFlow.CanTransition(StatusPending, StatusCancelled))
	assert.True(t, PickupFlow.CanTransition(StatusConfirmed, StatusCancelled))
	assert.False(t, PickupFlow.CanTransition(StatusCompleted, StatusCancelled))
	assert.False(t, PickupFlow.CanTransition(StatusConfirmed, StatusPending))
}

func TestOpenStatuses(t *testing.T) {
	assert.Equal(t, []OrderStatus{StatusPending, StatusPaymentCheck, StatusConfirmed, StatusShipped}, DeliveryFlow.Open())
	assert.Equal(t, []OrderStatus{StatusPending, StatusConfirmed}, PickupFlow.Open())
	assert.True(t, DeliveryFlow.IsTerminal(StatusDelivered))
	assert.True(t, PickupFlow.IsTerminal(StatusCompleted))
}

func TestParseStatuses(t *testing.T) {
	got := DeliveryFlow.ParseStatuses("pending, shipped,bogus,pending,completed")
	assert.Equal(t, []OrderStatus{StatusPending, StatusShipped}, got)
	assert.Empty(t, DeliveryFlow.ParseStatuses(""))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "⏳ Ожидает", StatusPending.Label())
	assert.Equal(t, "mystery", OrderStatus("mystery").Label())
}

func TestSellerActions(t *testing.T) {
	tests := []struct {
		flow      *OrderFlow
		status    OrderStatus
		accepts   bool
		completes bool
	}{
		{DeliveryFlow, StatusPending, false, false},
		{DeliveryFlow, StatusPaymentCheck, true, false},
		{DeliveryFlow, StatusConfirmed, false, false},
		{DeliveryFlow, StatusShipped, false, true},
		{DeliveryFlow, StatusDelivered, false, false},
		{PickupFlow, StatusPending, true, true},
		{PickupFlow, StatusConfirmed, false, true},
		{PickupFlow, StatusCompleted, false, false},
		{PickupFlow, StatusCancelled, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.accepts, tt.flow.Accepts(tt.status), "%s accepts %s", tt.flow.Name, tt.status)
		assert.Equal(t, tt.completes, tt.flow.Completes(tt.status), "%s completes %s", tt.flow.Name, tt.status)
	}
}
