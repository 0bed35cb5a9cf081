package storagetest

import (
	"time"

	"github.com/google/uuid"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

// Fixture is a seeded store open 09:00-17:00 Monday to Saturday and closed on
// Sunday. It offers one 60 minute service and has one technician.
type Fixture struct {
	Mem        *Memory
	Store      domain.Store
	Service    domain.Service
	Technician domain.Technician
}

func NewFixture() *Fixture {
	mem := NewMemory()
	store := domain.Store{
		ID:           uuid.New(),
		Name:         "Downtown",
		OpeningHours: WeekHours("09:00", "17:00"),
		Active:       true,
	}
	svc := domain.Service{
		ID:              uuid.New(),
		StoreID:         &store.ID,
		Name:            "Full service",
		DurationMinutes: 60,
		Active:          true,
	}
	tech := domain.Technician{ID: uuid.New(), StoreID: store.ID, Name: "Ana", Active: true}

	mem.AddStore(store)
	mem.AddService(svc)
	mem.AddTechnician(tech)
	return &Fixture{Mem: mem, Store: store, Service: svc, Technician: tech}
}

// WeekHours opens every day but Sunday with the same hours.
func WeekHours(open, close string) domain.OpeningHours {
	hours := domain.OpeningHours{}
	for d := time.Monday; d <= time.Saturday; d++ {
		hours[domain.WeekdayKey(d)] = domain.DaySchedule{Open: open, Close: close}
	}
	hours[domain.WeekdayKey(time.Sunday)] = domain.DaySchedule{Closed: true}
	return hours
}

// Booking builds a pending booking for the fixture's store and service.
func (f *Fixture) Booking(start time.Time, minutes int, tech *uuid.UUID) domain.Booking {
	return domain.Booking{
		ID:           uuid.New(),
		Token:        uuid.NewString(),
		StoreID:      f.Store.ID,
		ServiceID:    f.Service.ID,
		TechnicianID: tech,
		Start:        start,
		End:          start.Add(time.Duration(minutes) * time.Minute),
		Status:       domain.BookingPending,
		Customer:     domain.Customer{Name: "Jane Doe", Email: "jane@example.com"},
	}
}
