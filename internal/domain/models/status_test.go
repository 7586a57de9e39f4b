package models_test

import (
	"encoding/json"
	"testing"

	"github.com/linemk/bookshop/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, models.CanTransition(models.OrderPending, models.OrderConfirmed))
	assert.True(t, models.CanTransition(models.OrderPending, models.OrderCancelled))
	assert.True(t, models.CanTransition(models.OrderConfirmed, models.OrderCancelled))
	assert.True(t, models.CanTransition(models.OrderShipped, models.OrderCancelled))
	assert.False(t, models.CanTransition(models.OrderDelivered, models.OrderCancelled))
	assert.False(t, models.CanTransition(models.OrderCancelled, models.OrderCancelled))
	assert.False(t, models.CanTransition(models.OrderConfirmed, models.OrderPending))
}

func TestParseOrderStatus(t *testing.T) {
	st, ok := models.ParseOrderStatus("cancelado")
	assert.True(t, ok)
	assert.Equal(t, models.OrderCancelled, st)

	_, ok = models.ParseOrderStatus("PAID")
	assert.False(t, ok)
}

func TestPaymentStatus_Live(t *testing.T) {
	assert.True(t, models.PaymentPending.IsLive())
	assert.True(t, models.PaymentApproved.IsLive())
	assert.False(t, models.PaymentDeclined.IsLive())
	assert.False(t, models.PaymentFailed.IsLive())
	assert.False(t, models.PaymentPending.IsTerminal())
	assert.True(t, models.PaymentFailed.IsTerminal())
}

func TestOrder_Total(t *testing.T) {
	order := &models.Order{Items: []*models.OrderItem{
		{Quantity: 2, UnitPrice: decimal.RequireFromString("19.90")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("5.25")},
	}}
	assert.True(t, decimal.RequireFromString("45.05").Equal(order.Total()))

	empty := &models.Order{}
	assert.True(t, empty.Total().IsZero())
}

func TestOrder_MarshalJSON(t *testing.T) {
	order := &models.Order{ID: 7, Status: models.OrderPending, Items: []*models.OrderItem{
		{Quantity: 3, UnitPrice: decimal.RequireFromString("10.00")},
	}}
	b, err := json.Marshal(order)
	assert.NoError(t, err)

	var out map[string]any
	assert.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "30", out["total"])
	assert.Equal(t, "PENDENTE", out["status"])
	assert.Len(t, out["items"], 1)
}
