package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DaySchedule holds local "HH:mm" opening and closing times for one weekday.
type DaySchedule struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

// OpeningHours is keyed by lowercase English weekday name ("monday" ... "sunday").
type OpeningHours map[string]DaySchedule

func WeekdayKey(d time.Weekday) string {
	return strings.ToLower(d.String())
}

type Store struct {
	ID           uuid.UUID
	Name         string
	OpeningHours OpeningHours
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StoreUpdate lists the fields an admin may change; nil means unchanged.
type StoreUpdate struct {
	Name         *string
	OpeningHours *OpeningHours
	Active       *bool
}

type Service struct {
	ID              uuid.UUID
	StoreID         *uuid.UUID
	Name            string
	DurationMinutes int
	Active          bool
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// AvailableAt reports whether the service can be booked at the given store.
// Services without a store are global.
func (s Service) AvailableAt(storeID uuid.UUID) bool {
	return s.Active && (s.StoreID == nil || *s.StoreID == storeID)
}

type Technician struct {
	ID      uuid.UUID
	StoreID uuid.UUID
	Name    string
	Active  bool
}

type AvailabilityBlock struct {
	ID           uuid.UUID
	StoreID      uuid.UUID
	TechnicianID *uuid.UUID
	Start        time.Time
	End          time.Time
	Reason       *string
	CreatedAt    time.Time
}

func (b AvailabilityBlock) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}

// TimeSlot is derived per query and never persisted.
type TimeSlot struct {
	Start          time.Time  `json:"start_datetime"`
	End            time.Time  `json:"end_datetime"`
	TechnicianID   *uuid.UUID `json:"technician_id,omitempty"`
	TechnicianName string     `json:"technician_name,omitempty"`
	Available      bool       `json:"available"`
}

func (s TimeSlot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

type OutboxEvent struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	DedupeKey     string
	CreatedAt     time.Time
}

// SameScope reports whether two optional technician assignments compete for
// the same capacity. An unassigned side competes with everything in the store.
func SameScope(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return true
	}
	return *a == *b
}
