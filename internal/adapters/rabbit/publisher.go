package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

const Exchange = "bookings.events"

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	return p.ch.PublishWithContext(ctx, Exchange, key, false, false, msg)
}

// PublishEvent sends an outbox record, using its dedupe key as message id.
func (p *Publisher) PublishEvent(ctx context.Context, ev domain.OutboxEvent) error {
	return p.Publish(ctx, ev.EventType, amqp.Publishing{
		MessageId:    ev.DedupeKey,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.CreatedAt,
		Type:         ev.EventType,
		Body:         ev.Payload,
	})
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// LockEvents announces purged reservation locks as lock.expired messages.
type LockEvents struct {
	pub *Publisher
}

func NewLockEvents(pub *Publisher) *LockEvents {
	return &LockEvents{pub: pub}
}

func (l *LockEvents) LocksExpired(ctx context.Context, locks []domain.ReservationLock) error {
	now := time.Now()
	for _, lock := range locks {
		body, err := json.Marshal(domain.NewLockEvent(lock))
		if err != nil {
			return err
		}
		err = l.pub.Publish(ctx, domain.EventLockExpired, amqp.Publishing{
			MessageId:   uuid.New().String(),
			ContentType: "application/json",
			Timestamp:   now,
			Type:        domain.EventLockExpired,
			Body:        body,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
