package booking

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/robertarktes/workshop-bookings/internal/availability"
	"github.com/robertarktes/workshop-bookings/internal/clock"
	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/observability"
	"github.com/robertarktes/workshop-bookings/internal/storage"
)

type CreateInput struct {
	StoreID      uuid.UUID
	ServiceID    uuid.UUID
	TechnicianID *uuid.UUID
	Start        time.Time
	Customer     domain.Customer
	Notes        string
	// SessionID is the booking-flow session. Its own hold does not block the
	// booking and is released when the booking commits.
	SessionID string
}

type Service struct {
	txRunner     storage.TxRunner
	bookings     storage.BookingStore
	availability *availability.Service
	clock        clock.Clock
	logger       observability.Logger
	tracer       trace.Tracer
	newToken     func() (string, error)
}

func NewService(txRunner storage.TxRunner, bookings storage.BookingStore, avail *availability.Service, clk clock.Clock, logger observability.Logger) *Service {
	return &Service{
		txRunner:     txRunner,
		bookings:     bookings,
		availability: avail,
		clock:        clk,
		logger:       logger,
		tracer:       otel.Tracer("booking"),
		newToken:     NewToken,
	}
}

// CreateBooking re-checks the requested slot and inserts a pending booking
// inside one transaction. A taken slot yields domain.ErrSlotConflict and
// nothing is written.
func (s *Service) CreateBooking(ctx context.Context, in CreateInput) (*domain.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "booking.CreateBooking", trace.WithAttributes(
		attribute.String("store_id", in.StoreID.String()),
		attribute.String("service_id", in.ServiceID.String()),
		attribute.String("start", in.Start.Format(time.RFC3339)),
	))
	defer span.End()

	in.Customer.Name = strings.TrimSpace(in.Customer.Name)
	in.Customer.Email = strings.TrimSpace(in.Customer.Email)
	if in.Customer.Name == "" || in.Customer.Email == "" {
		return nil, errors.Wrap(domain.ErrInvalidInput, "customer name and email are required")
	}

	token, err := s.newToken()
	if err != nil {
		return nil, errors.Wrap(err, "generate booking token")
	}

	var created *domain.Booking
	err = s.txRunner.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		created = nil

		if err := tx.LockStore(ctx, in.StoreID); err != nil {
			return err
		}

		slot, err := s.availability.WithReader(tx).FindSlot(ctx, availability.SlotQuery{
			StoreID:        in.StoreID,
			ServiceID:      in.ServiceID,
			Start:          in.Start,
			TechnicianID:   in.TechnicianID,
			ExcludeSession: in.SessionID,
		})
		if err != nil {
			return err
		}
		if slot == nil || !slot.Available {
			return errors.Wrapf(domain.ErrSlotConflict, "store %s at %s", in.StoreID, in.Start.Format(time.RFC3339))
		}

		now := s.clock.Now()
		b := domain.Booking{
			ID:           uuid.New(),
			Token:        token,
			StoreID:      in.StoreID,
			ServiceID:    in.ServiceID,
			TechnicianID: in.TechnicianID,
			Start:        slot.Start,
			End:          slot.End,
			Status:       domain.BookingPending,
			Customer:     in.Customer,
			Notes:        in.Notes,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.InsertBooking(ctx, &b); err != nil {
			return err
		}
		if in.SessionID != "" {
			if _, err := tx.DeleteSessionLocks(ctx, in.SessionID); err != nil {
				return err
			}
		}

		ev, err := domain.NewBookingOutboxEvent(domain.EventBookingCreated, b, now)
		if err != nil {
			return err
		}
		if err := tx.InsertOutbox(ctx, ev); err != nil {
			return err
		}

		created = &b
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotConflict) {
			observability.SlotConflicts.Inc()
		}
		span.RecordError(err)
		return nil, err
	}

	observability.BookingsCreated.Inc()
	observability.LoggerFrom(ctx, s.logger).
		WithField("booking_id", created.ID).
		WithField("store_id", created.StoreID).
		Info("booking created")
	return created, nil
}

func (s *Service) GetByToken(ctx context.Context, token string) (*domain.Booking, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrBookingNotFound
	}
	return s.bookings.BookingByToken(ctx, token)
}

// UpdateBooking applies an admin change. Status changes must follow
// BookingStatus.CanTransitionTo and are announced as booking.status_changed.
func (s *Service) UpdateBooking(ctx context.Context, id uuid.UUID, upd domain.BookingUpdate) (*domain.Booking, error) {
	if upd.Empty() {
		return nil, errors.Wrap(domain.ErrInvalidInput, "nothing to update")
	}

	current, err := s.bookings.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var ev *domain.OutboxEvent
	if upd.Status != nil {
		if !current.Status.CanTransitionTo(*upd.Status) {
			return nil, errors.Wrapf(domain.ErrInvalidStatusTransition, "%s -> %s", current.Status, *upd.Status)
		}
		if *upd.Status != current.Status {
			next := *current
			next.Status = *upd.Status
			e, err := domain.NewBookingOutboxEvent(domain.EventBookingStatusChanged, next, now)
			if err != nil {
				return nil, err
			}
			ev = &e
		}
	}

	updated, err := s.bookings.UpdateBooking(ctx, id, current.Status, upd, now, ev)
	if err != nil {
		return nil, err
	}
	observability.LoggerFrom(ctx, s.logger).
		WithField("booking_id", id).
		WithField("status", updated.Status).
		Info("booking updated")
	return updated, nil
}
