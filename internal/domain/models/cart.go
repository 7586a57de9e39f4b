package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem — строка корзины пользователя: одна книга и её количество
type CartItem struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	BookID    int64           `json:"book_id"`
	BookTitle string          `json:"book_title"` // заполняется через JOIN с таблицей books
	UnitPrice decimal.Decimal `json:"unit_price"` // текущая цена книги, не снимок
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Subtotal возвращает стоимость строки по текущей цене книги
func (c *CartItem) Subtotal() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}
