package domain

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no_show"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled, BookingNoShow:
		return st, nil
	}
	return "", errors.Wrapf(ErrInvalidInput, "unknown booking status %q", s)
}

// Occupies reports whether a booking in this status holds its slot.
func (s BookingStatus) Occupies() bool {
	return s != BookingCancelled
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled || s == BookingNoShow
}

// CanTransitionTo reports whether an admin may move a booking from s to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCompleted || next == BookingCancelled || next == BookingNoShow
	case BookingConfirmed:
		return next == BookingCompleted || next == BookingCancelled || next == BookingNoShow
	}
	return false
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Booking struct {
	ID           uuid.UUID     `json:"id"`
	Token        string        `json:"booking_token"`
	StoreID      uuid.UUID     `json:"store_id"`
	ServiceID    uuid.UUID     `json:"service_id"`
	TechnicianID *uuid.UUID    `json:"technician_id,omitempty"`
	Start        time.Time     `json:"start_datetime"`
	End          time.Time     `json:"end_datetime"`
	Status       BookingStatus `json:"status"`
	Customer     Customer      `json:"customer"`
	Notes        string        `json:"notes,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (b Booking) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}

// BookingUpdate lists the fields an admin may change; nil means unchanged.
type BookingUpdate struct {
	Status *BookingStatus
	Notes  *string
}

func (u BookingUpdate) Empty() bool {
	return u.Status == nil && u.Notes == nil
}
