package models

import "strings"

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDENTE"
	OrderConfirmed OrderStatus = "CONFIRMADO"
	OrderShipped   OrderStatus = "ENVIADO"
	OrderDelivered OrderStatus = "ENTREGUE"
	OrderCancelled OrderStatus = "CANCELADO"
)

// допустимые переходы статусов заказа
var orderNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:   {OrderConfirmed: true, OrderCancelled: true},
	OrderConfirmed: {OrderShipped: true, OrderCancelled: true},
	OrderShipped:   {OrderDelivered: true, OrderCancelled: true},
	OrderDelivered: {},
	OrderCancelled: {},
}

// CanTransition сообщает, разрешён ли переход заказа из from в to
func CanTransition(from, to OrderStatus) bool {
	return orderNext[from][to]
}

// IsTerminal — заказ доставлен или отменён
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// ParseOrderStatus разбирает статус без учёта регистра
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := orderNext[st]; !ok {
		return "", false
	}
	return st, true
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDENTE"
	PaymentApproved PaymentStatus = "APROVADO"
	PaymentDeclined PaymentStatus = "RECUSADO"
	PaymentFailed   PaymentStatus = "FALHA" // ошибка на стороне процессинга, мок её не выдаёт
)

// IsLive — попытка ещё идёт или уже прошла успешно; такая у заказа может быть только одна
func (s PaymentStatus) IsLive() bool {
	return s == PaymentPending || s == PaymentApproved
}

// IsTerminal — из этих статусов переходов нет
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentApproved || s == PaymentDeclined || s == PaymentFailed
}
