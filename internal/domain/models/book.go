package models

import "github.com/shopspring/decimal"

// Book представляет книгу из каталога. Сервис только читает каталог
type Book struct {
	ID     int64           `json:"id"`
	Title  string          `json:"title"`
	Author string          `json:"author"`
	Price  decimal.Decimal `json:"price"` // текущая цена, фиксируется в заказе при оформлении
	Stock  int             `json:"stock"`
}
