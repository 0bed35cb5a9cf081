package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationLock is a soft hold on a slot while a customer fills in the
// booking form. It stops other sessions from seeing the slot as free until
// ExpiresAt; it does not guarantee exclusivity.
type ReservationLock struct {
	ID           uuid.UUID  `json:"id"`
	StoreID      uuid.UUID  `json:"store_id"`
	TechnicianID *uuid.UUID `json:"technician_id,omitempty"`
	Start        time.Time  `json:"start_datetime"`
	End          time.Time  `json:"end_datetime"`
	SessionID    string     `json:"session_id"`
	ExpiresAt    time.Time  `json:"expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func NewReservationLock(storeID uuid.UUID, technicianID *uuid.UUID, iv Interval, sessionID string, now time.Time, ttl time.Duration) ReservationLock {
	return ReservationLock{
		ID:           uuid.New(),
		StoreID:      storeID,
		TechnicianID: technicianID,
		Start:        iv.Start,
		End:          iv.End,
		SessionID:    sessionID,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}
}

func (l ReservationLock) Interval() Interval {
	return Interval{Start: l.Start, End: l.End}
}

func (l ReservationLock) ActiveAt(now time.Time) bool {
	return l.ExpiresAt.After(now)
}
