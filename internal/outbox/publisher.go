package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/observability"
)

type Store interface {
	ClaimOutbox(ctx context.Context, limit int, publish func(ctx context.Context, events []domain.OutboxEvent) []uuid.UUID) (int, error)
}

type Broker interface {
	PublishEvent(ctx context.Context, ev domain.OutboxEvent) error
}

type Publisher struct {
	store     Store
	broker    Broker
	logger    observability.Logger
	interval  time.Duration
	batchSize int
	retryBase time.Duration
}

func NewPublisher(store Store, broker Broker, logger observability.Logger, interval time.Duration, batchSize int) *Publisher {
	return &Publisher{
		store:     store,
		broker:    broker,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		retryBase: 100 * time.Millisecond,
	}
}

func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Drain full batches before waiting for the next tick.
			for {
				n, err := p.PublishBatch(ctx)
				if err != nil {
					if ctx.Err() == nil {
						p.logger.WithError(err).Error("failed to publish outbox batch")
					}
					break
				}
				if n < p.batchSize {
					break
				}
			}
		}
	}
}

// PublishBatch publishes one batch and returns how many records were marked
// published.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	return p.store.ClaimOutbox(ctx, p.batchSize, p.publish)
}

// publish sends events in order and stops at the first failure so that
// later events are never delivered ahead of an earlier one.
func (p *Publisher) publish(ctx context.Context, events []domain.OutboxEvent) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(events))
	for _, ev := range events {
		if err := p.publishWithRetry(ctx, ev); err != nil {
			p.logger.WithError(err).WithField("event_id", ev.ID).WithField("event_type", ev.EventType).Error("failed to publish outbox event")
			break
		}
		ids = append(ids, ev.ID)
	}
	if len(events) > 0 {
		observability.OutboxLag.Set(time.Since(events[0].CreatedAt).Seconds())
	}
	return ids
}

func (p *Publisher) publishWithRetry(ctx context.Context, ev domain.OutboxEvent) error {
	const maxRetries = 3
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = p.broker.PublishEvent(ctx, ev); err == nil {
			return nil
		}
		observability.RabbitPublishRetries.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(1<<i) * p.retryBase):
		}
	}
	return err
}
