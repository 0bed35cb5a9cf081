package http

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

type availabilityQuery struct {
	StoreID      string `json:"store_id" validate:"required,uuid"`
	ServiceID    string `json:"service_id" validate:"required,uuid"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	TechnicianID string `json:"technician_id" validate:"omitempty,uuid"`
}

type availabilityResponse struct {
	Date      string            `json:"date"`
	StoreID   uuid.UUID         `json:"store_id"`
	ServiceID uuid.UUID         `json:"service_id"`
	Slots     []domain.TimeSlot `json:"slots"`
}

type createBookingRequest struct {
	StoreID       string  `json:"store_id" validate:"required,uuid"`
	ServiceID     string  `json:"service_id" validate:"required,uuid"`
	TechnicianID  *string `json:"technician_id" validate:"omitempty,uuid"`
	StartDatetime string  `json:"start_datetime" validate:"required"`
	CustomerName  string  `json:"customer_name" validate:"required,min=2,max=120"`
	CustomerEmail string  `json:"customer_email" validate:"required,email,max=254"`
	CustomerPhone string  `json:"customer_phone" validate:"omitempty,max=32"`
	Notes         string  `json:"notes" validate:"max=1000"`
	SessionID     string  `json:"session_id" validate:"omitempty,max=128"`
}

type updateBookingRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=pending confirmed completed cancelled no_show"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
}

type acquireLockRequest struct {
	StoreID       string  `json:"store_id" validate:"required,uuid"`
	TechnicianID  *string `json:"technician_id" validate:"omitempty,uuid"`
	StartDatetime string  `json:"start_datetime" validate:"required"`
	EndDatetime   string  `json:"end_datetime" validate:"required"`
	SessionID     string  `json:"session_id" validate:"required,max=128"`
}

type createBlockRequest struct {
	TechnicianID  *string `json:"technician_id" validate:"omitempty,uuid"`
	StartDatetime string  `json:"start_datetime" validate:"required"`
	EndDatetime   string  `json:"end_datetime" validate:"required"`
	Reason        string  `json:"reason" validate:"max=500"`
}

type blockResponse struct {
	ID           uuid.UUID  `json:"id"`
	StoreID      uuid.UUID  `json:"store_id"`
	TechnicianID *uuid.UUID `json:"technician_id,omitempty"`
	Start        time.Time  `json:"start_datetime"`
	End          time.Time  `json:"end_datetime"`
	Reason       *string    `json:"reason,omitempty"`
}

type dayScheduleRequest struct {
	Open   string `json:"open" validate:"omitempty,hhmm"`
	Close  string `json:"close" validate:"omitempty,hhmm"`
	Closed bool   `json:"closed"`
}

type updateStoreRequest struct {
	Name         *string                       `json:"name" validate:"omitempty,min=1,max=200"`
	OpeningHours map[string]dayScheduleRequest `json:"opening_hours" validate:"omitempty,dive,keys,weekday,endkeys"`
	Active       *bool                         `json:"active"`
}

type storeResponse struct {
	ID           uuid.UUID           `json:"id"`
	Name         string              `json:"name"`
	OpeningHours domain.OpeningHours `json:"opening_hours"`
	Active       bool                `json:"active"`
}

func toStoreUpdate(req updateStoreRequest) domain.StoreUpdate {
	upd := domain.StoreUpdate{Name: req.Name, Active: req.Active}
	if req.OpeningHours != nil {
		hours := make(domain.OpeningHours, len(req.OpeningHours))
		for day, s := range req.OpeningHours {
			hours[day] = domain.DaySchedule{Open: s.Open, Close: s.Close, Closed: s.Closed}
		}
		upd.OpeningHours = &hours
	}
	return upd
}

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// parseDateTime accepts RFC 3339 or a local date-time without offset, read
// in the business timezone.
func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Wrapf(domain.ErrInvalidInput, "malformed datetime %q", s)
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "malformed uuid %q", *s)
	}
	return &id, nil
}
