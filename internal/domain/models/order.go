package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Order представляет заказ, созданный из корзины пользователя
type Order struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	Status    OrderStatus  `json:"status"`
	Items     []*OrderItem `json:"items"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// OrderItem — позиция заказа. Цена зафиксирована в момент оформления и больше не меняется
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	BookID    int64           `json:"book_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal — количество, умноженное на цену снимка
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total считается из позиций, в БД не хранится
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// MarshalJSON добавляет вычисляемое поле total в ответ
func (o *Order) MarshalJSON() ([]byte, error) {
	type alias Order
	items := o.Items
	if items == nil {
		items = []*OrderItem{}
	}
	return json.Marshal(struct {
		*alias
		Items []*OrderItem    `json:"items"`
		Total decimal.Decimal `json:"total"`
	}{
		alias: (*alias)(o),
		Items: items,
		Total: o.Total(),
	})
}
