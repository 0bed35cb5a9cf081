package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
	EventLockExpired          = "lock.expired"
)

// BookingEvent is the message body of booking.* events.
type BookingEvent struct {
	BookingID     uuid.UUID     `json:"booking_id"`
	Token         string        `json:"booking_token"`
	StoreID       uuid.UUID     `json:"store_id"`
	ServiceID     uuid.UUID     `json:"service_id"`
	TechnicianID  *uuid.UUID    `json:"technician_id,omitempty"`
	Start         time.Time     `json:"start_datetime"`
	End           time.Time     `json:"end_datetime"`
	Status        BookingStatus `json:"status"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// NewBookingOutboxEvent wraps b as an outbox record of the given event type.
func NewBookingOutboxEvent(eventType string, b Booking, now time.Time) (OutboxEvent, error) {
	payload, err := json.Marshal(BookingEvent{
		BookingID:     b.ID,
		Token:         b.Token,
		StoreID:       b.StoreID,
		ServiceID:     b.ServiceID,
		TechnicianID:  b.TechnicianID,
		Start:         b.Start,
		End:           b.End,
		Status:        b.Status,
		CustomerName:  b.Customer.Name,
		CustomerEmail: b.Customer.Email,
		OccurredAt:    now,
	})
	if err != nil {
		return OutboxEvent{}, err
	}
	return OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
		DedupeKey:     eventType + ":" + b.ID.String() + ":" + string(b.Status),
		CreatedAt:     now,
	}, nil
}

// LockEvent is the message body of lock.* events.
type LockEvent struct {
	LockID       uuid.UUID  `json:"lock_id"`
	StoreID      uuid.UUID  `json:"store_id"`
	TechnicianID *uuid.UUID `json:"technician_id,omitempty"`
	SessionID    string     `json:"session_id"`
	Start        time.Time  `json:"start_datetime"`
	End          time.Time  `json:"end_datetime"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

func NewLockEvent(l ReservationLock) LockEvent {
	return LockEvent{
		LockID:       l.ID,
		StoreID:      l.StoreID,
		TechnicianID: l.TechnicianID,
		SessionID:    l.SessionID,
		Start:        l.Start,
		End:          l.End,
		ExpiresAt:    l.ExpiresAt,
	}
}
