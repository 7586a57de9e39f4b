package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment — одна попытка оплаты заказа картой.
// Номер карты хранится только в маскированном виде, CVV не сохраняется вовсе
type Payment struct {
	ID               int64           `json:"id"`
	OrderID          int64           `json:"order_id"`
	Amount           decimal.Decimal `json:"amount"`
	CardBrand        string          `json:"card_brand,omitempty"`
	CardLastDigits   string          `json:"card_last_digits"` // "**** **** **** 1234"
	Status           PaymentStatus   `json:"status"`
	GatewayReference string          `json:"gateway_reference,omitempty"`
	Message          string          `json:"message,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
