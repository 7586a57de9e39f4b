// Package notify рассылает доменные события (заказ оформлен, платёж одобрен).
// Доставка best-effort: ошибка публикации логируется вызывающим и не откатывает операцию
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/bookshop/internal/config"
	"github.com/shopspring/decimal"
)

const (
	EventPurchaseCompleted = "purchase.completed"
	EventPaymentApproved   = "payment.approved"
)

const (
	DriverLog   = "log"
	DriverKafka = "kafka"
	DriverAMQP  = "amqp"
)

type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	UserID     int64           `json:"user_id"`
	OrderID    int64           `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NewEvent заполняет идентификатор и время события. payload сериализуется в JSON, nil допустим
func NewEvent(eventType string, userID, orderID int64, amount decimal.Decimal, payload any) (Event, error) {
	ev := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		UserID:     userID,
		OrderID:    orderID,
		Amount:     amount,
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal payload: %w", err)
		}
		ev.Payload = b
	}
	return ev, nil
}

// Key — ключ партиционирования: события одного заказа идут по порядку
func (e Event) Key() string {
	return fmt.Sprintf("order:%d", e.OrderID)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// New выбирает реализацию по notifier.driver
func New(ctx context.Context, cfg config.NotifierConfig, log *slog.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "", DriverLog:
		return NewLogPublisher(log), nil
	case DriverKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("notify: kafka driver requires at least one broker")
		}
		return NewKafkaPublisher(ctx, log, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Buffer), nil
	case DriverAMQP:
		if cfg.AMQP.URL == "" {
			return nil, fmt.Errorf("notify: amqp driver requires AMQP_URL")
		}
		return NewAMQPPublisher(log, cfg.AMQP.URL, cfg.AMQP.Exchange)
	default:
		return nil, fmt.Errorf("notify: unknown driver %q", cfg.Driver)
	}
}
