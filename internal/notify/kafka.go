package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrPublisherClosed = errors.New("publisher closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher складывает сообщения в буфер, фоновая горутина пишет их в kafka.
// Close дожидается, пока буфер будет выгружен
type KafkaPublisher struct {
	log    *slog.Logger
	w      messageWriter
	inbox  chan kafka.Message
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

func NewKafkaPublisher(ctx context.Context, log *slog.Logger, brokers []string, topic string, buf int) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(ctx, log, w, buf)
}

func newKafkaPublisher(ctx context.Context, log *slog.Logger, w messageWriter, buf int) *KafkaPublisher {
	if buf <= 0 {
		buf = 1
	}
	p := &KafkaPublisher{
		log:   log.With(slog.String("component", "notify.kafka")),
		w:     w,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
	go p.loop(ctx)
	return p
}

func (p *KafkaPublisher) loop(ctx context.Context) {
	defer close(p.done)
	for m := range p.inbox {
		// контекст запроса к этому моменту уже может быть отменён, пишем со своим
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := p.w.WriteMessages(wctx, m); err != nil {
			p.log.Error("failed to write message", slog.String("key", string(m.Key)), slog.Any("error", err))
		}
		cancel()
	}
	if err := p.w.Close(); err != nil {
		p.log.Error("failed to close writer", slog.Any("error", err))
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Key()),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()

	<-p.done
	return nil
}
