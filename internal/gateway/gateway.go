// Package gateway описывает платёжный шлюз. В сервисе используется только мок
package gateway

import (
	"context"

	"github.com/linemk/bookshop/internal/lib/card"
	"github.com/shopspring/decimal"
)

const (
	RefApproved = "MOCK-OK"
	RefDeclined = "MOCK-FAIL"
)

// Request — всё, что шлюзу нужно для авторизации платежа
type Request struct {
	OrderID int64
	Amount  decimal.Decimal
	Number  string
	Holder  string
}

// Result — ответ шлюза. Approved=false означает отказ банка, а не техническую ошибку
type Result struct {
	Approved  bool
	Reference string
	Message   string
}

// Authorizer — клиент платёжного шлюза
type Authorizer interface {
	Authorize(ctx context.Context, req Request) (Result, error)
}

// Mock одобряет платёж, если последняя цифра номера карты чётная
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Authorize(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if card.LastDigitEven(req.Number) {
		return Result{Approved: true, Reference: RefApproved, Message: "payment approved (mock)"}, nil
	}
	return Result{Approved: false, Reference: RefDeclined, Message: "card declined (mock)"}, nil
}
