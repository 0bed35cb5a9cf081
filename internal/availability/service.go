package availability

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/robertarktes/workshop-bookings/internal/clock"
	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/observability"
	"github.com/robertarktes/workshop-bookings/internal/storage"
)

type Query struct {
	StoreID      uuid.UUID
	ServiceID    uuid.UUID
	Date         time.Time
	TechnicianID *uuid.UUID
	// ExcludeSession hides locks owned by this session.
	ExcludeSession string
}

type SlotQuery struct {
	StoreID        uuid.UUID
	ServiceID      uuid.UUID
	Start          time.Time
	TechnicianID   *uuid.UUID
	ExcludeSession string
}

// Service computes slot availability from current storage state on every
// call. It keeps no cache.
type Service struct {
	reader storage.Reader
	clock  clock.Clock
	policy Policy
	tracer trace.Tracer
}

func NewService(reader storage.Reader, clk clock.Clock, policy Policy) *Service {
	return &Service{
		reader: reader,
		clock:  clk,
		policy: policy,
		tracer: otel.Tracer("availability"),
	}
}

// WithReader returns a copy of the service reading through r, typically an
// open transaction.
func (s *Service) WithReader(r storage.Reader) *Service {
	cp := *s
	cp.reader = r
	return &cp
}

func (s *Service) Policy() Policy {
	return s.policy
}

// AvailableSlots returns every candidate slot for the day in chronological
// order, each flagged available or not. Days outside the booking window and
// closed days yield an empty list.
func (s *Service) AvailableSlots(ctx context.Context, q Query) ([]domain.TimeSlot, error) {
	ctx, span := s.tracer.Start(ctx, "availability.AvailableSlots", trace.WithAttributes(
		attribute.String("store_id", q.StoreID.String()),
		attribute.String("service_id", q.ServiceID.String()),
		attribute.String("date", q.Date.Format("2006-01-02")),
	))
	defer span.End()

	started := time.Now()
	defer func() { observability.AvailabilityDuration.Observe(time.Since(started).Seconds()) }()

	slots, err := s.compute(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("slots", len(slots)))
	return slots, nil
}

func (s *Service) compute(ctx context.Context, q Query) ([]domain.TimeSlot, error) {
	store, err := s.reader.StoreByID(ctx, q.StoreID)
	if err != nil {
		return nil, err
	}
	if !store.Active {
		return nil, errors.Wrapf(domain.ErrStoreNotFound, "store %s is inactive", q.StoreID)
	}

	svc, err := s.reader.ServiceByID(ctx, q.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.AvailableAt(q.StoreID) {
		return nil, errors.Wrapf(domain.ErrServiceNotFound, "service %s is not offered at store %s", q.ServiceID, q.StoreID)
	}

	var tech *domain.Technician
	if q.TechnicianID != nil {
		tech, err = s.reader.TechnicianByID(ctx, *q.TechnicianID)
		if err != nil {
			return nil, err
		}
		if !tech.Active || tech.StoreID != q.StoreID {
			return nil, errors.Wrapf(domain.ErrTechnicianNotFound, "technician %s does not work at store %s", tech.ID, q.StoreID)
		}
	}

	now := s.clock.Now()
	loc := s.policy.location()
	if !s.policy.InWindow(q.Date, now) {
		return []domain.TimeSlot{}, nil
	}

	window, open, err := ResolveDay(store.OpeningHours, q.Date, loc)
	if err != nil {
		return nil, err
	}
	if !open {
		return []domain.TimeSlot{}, nil
	}

	slots, err := GenerateSlots(window, svc.Duration(), s.policy.SlotStep)
	if err != nil {
		return nil, err
	}
	if tech != nil {
		for i := range slots {
			slots[i].TechnicianID = &tech.ID
			slots[i].TechnicianName = tech.Name
		}
	}

	occ, err := s.occupancy(ctx, q.StoreID, window, now, q.ExcludeSession)
	if err != nil {
		return nil, err
	}
	MarkConflicts(slots, occ, s.policy.Buffer, now)

	cutoff := s.policy.LeadCutoff(now)
	for i := range slots {
		if slots[i].Start.Before(cutoff) {
			slots[i].Available = false
		}
	}
	return slots, nil
}

func (s *Service) occupancy(ctx context.Context, storeID uuid.UUID, window domain.Interval, now time.Time, excludeSession string) (Occupancy, error) {
	// A booking ending up to one buffer before opening still reaches into the day.
	bookings, err := s.reader.BookingsBetween(ctx, storeID, window.Start.Add(-s.policy.Buffer), window.End)
	if err != nil {
		return Occupancy{}, err
	}
	blocks, err := s.reader.BlocksBetween(ctx, storeID, window.Start, window.End)
	if err != nil {
		return Occupancy{}, err
	}
	locks, err := s.reader.LocksBetween(ctx, storeID, window.Start, window.End, now)
	if err != nil {
		return Occupancy{}, err
	}
	if excludeSession != "" {
		kept := locks[:0]
		for _, l := range locks {
			if l.SessionID != excludeSession {
				kept = append(kept, l)
			}
		}
		locks = kept
	}
	return Occupancy{Bookings: bookings, Blocks: blocks, Locks: locks}, nil
}

// FindSlot runs the full pipeline for the day of sq.Start and returns the
// candidate starting exactly at sq.Start, or nil when there is none.
func (s *Service) FindSlot(ctx context.Context, sq SlotQuery) (*domain.TimeSlot, error) {
	slots, err := s.AvailableSlots(ctx, Query{
		StoreID:        sq.StoreID,
		ServiceID:      sq.ServiceID,
		Date:           StartOfDay(sq.Start, s.policy.location()),
		TechnicianID:   sq.TechnicianID,
		ExcludeSession: sq.ExcludeSession,
	})
	if err != nil {
		return nil, err
	}
	for i := range slots {
		if slots[i].Start.Equal(sq.Start) {
			return &slots[i], nil
		}
	}
	return nil, nil
}

func (s *Service) IsSlotAvailable(ctx context.Context, sq SlotQuery) (bool, error) {
	slot, err := s.FindSlot(ctx, sq)
	if err != nil {
		return false, err
	}
	return slot != nil && slot.Available, nil
}
