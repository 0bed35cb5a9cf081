// Package storage declares the capabilities the booking core needs from a
// persistence backend. Adapters implement them; the core never sees a
// connection pool.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

// Reader answers the lookups behind availability computation.
//
// StoreByID, ServiceByID and TechnicianByID return the matching not-found
// sentinel when no row exists; callers decide what "inactive" means.
// BookingsBetween returns non-cancelled bookings intersecting [from, to).
// LocksBetween returns locks intersecting [from, to) that are still active at now.
type Reader interface {
	StoreByID(ctx context.Context, id uuid.UUID) (*domain.Store, error)
	ServiceByID(ctx context.Context, id uuid.UUID) (*domain.Service, error)
	TechnicianByID(ctx context.Context, id uuid.UUID) (*domain.Technician, error)
	BookingsBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]domain.Booking, error)
	BlocksBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]domain.AvailabilityBlock, error)
	LocksBetween(ctx context.Context, storeID uuid.UUID, from, to, now time.Time) ([]domain.ReservationLock, error)
}

// Tx is a Reader bound to an open transaction plus the writes the booking
// transaction performs.
type Tx interface {
	Reader
	// LockStore takes an exclusive row lock on the store for the rest of the
	// transaction, serializing concurrent bookings for that store.
	LockStore(ctx context.Context, storeID uuid.UUID) error
	InsertBooking(ctx context.Context, b *domain.Booking) error
	DeleteSessionLocks(ctx context.Context, sessionID string) (int64, error)
	InsertOutbox(ctx context.Context, ev domain.OutboxEvent) error
}

// TxRunner runs fn atomically. fn may be invoked more than once when the
// backend retries a serialization failure, so it must not keep side effects
// outside the transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type LockStore interface {
	// ReplaceSessionLock drops any lock held by lock.SessionID and inserts lock.
	ReplaceSessionLock(ctx context.Context, lock *domain.ReservationLock) error
	DeleteSessionLocks(ctx context.Context, sessionID string) (int64, error)
	DeleteExpiredLocks(ctx context.Context, now time.Time) ([]domain.ReservationLock, error)
}

type BookingStore interface {
	BookingByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	BookingByToken(ctx context.Context, token string) (*domain.Booking, error)
	// UpdateBooking applies upd only if the booking is still in status
	// expected; otherwise it returns domain.ErrStaleUpdate.
	UpdateBooking(ctx context.Context, id uuid.UUID, expected domain.BookingStatus, upd domain.BookingUpdate, now time.Time, ev *domain.OutboxEvent) (*domain.Booking, error)
}

type AdminStore interface {
	InsertBlock(ctx context.Context, b *domain.AvailabilityBlock) error
	DeleteBlock(ctx context.Context, id uuid.UUID) error
	UpdateStore(ctx context.Context, id uuid.UUID, upd domain.StoreUpdate, now time.Time) (*domain.Store, error)
}
