// Package audit projects booking and lock events from the broker into the
// audit log.
package audit

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/workshop-bookings/internal/observability"
)

var errMalformed = errors.New("malformed event")

type Recorder interface {
	LogEvent(ctx context.Context, messageID, action string, aggregateID uuid.UUID, data map[string]interface{}) error
}

type Projector struct {
	recorder Recorder
	logger   observability.Logger
}

func NewProjector(recorder Recorder, logger observability.Logger) *Projector {
	return &Projector{recorder: recorder, logger: logger}
}

// Handle records one event. The aggregate is the booking_id or lock_id of
// the payload.
func (p *Projector) Handle(ctx context.Context, eventType, messageID string, body []byte) error {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return errors.Mark(errors.Wrapf(err, "decode %s", eventType), errMalformed)
	}

	var aggregateID uuid.UUID
	for _, key := range []string{"booking_id", "lock_id"} {
		if raw, ok := data[key].(string); ok {
			id, err := uuid.Parse(raw)
			if err != nil {
				return errors.Mark(errors.Wrapf(err, "%s of %s", key, eventType), errMalformed)
			}
			aggregateID = id
			break
		}
	}
	if aggregateID == uuid.Nil {
		return errors.Wrapf(errMalformed, "%s carries no aggregate id", eventType)
	}

	return p.recorder.LogEvent(ctx, messageID, eventType, aggregateID, data)
}

// Run consumes deliveries until ctx is cancelled or the channel closes.
// Malformed messages are dropped; recorder failures are requeued.
func (p *Projector) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			eventType := d.Type
			if eventType == "" {
				eventType = d.RoutingKey
			}

			err := p.Handle(ctx, eventType, d.MessageId, d.Body)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, errMalformed):
				p.logger.WithError(err).WithField("event", eventType).Warn("dropping malformed event")
				_ = d.Nack(false, false)
			default:
				p.logger.WithError(err).WithField("event", eventType).Error("failed to record audit event")
				_ = d.Nack(false, true)
			}
		}
	}
}
