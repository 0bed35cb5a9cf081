package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

// txStore is the storage.Tx view of an open pgx transaction.
type txStore struct {
	tx pgx.Tx
}

func (t *txStore) StoreByID(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	return storeByID(ctx, t.tx, id)
}

func (t *txStore) ServiceByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	return serviceByID(ctx, t.tx, id)
}

func (t *txStore) TechnicianByID(ctx context.Context, id uuid.UUID) (*domain.Technician, error) {
	return technicianByID(ctx, t.tx, id)
}

func (t *txStore) BookingsBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	return bookingsBetween(ctx, t.tx, storeID, from, to)
}

func (t *txStore) BlocksBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]domain.AvailabilityBlock, error) {
	return blocksBetween(ctx, t.tx, storeID, from, to)
}

func (t *txStore) LocksBetween(ctx context.Context, storeID uuid.UUID, from, to, now time.Time) ([]domain.ReservationLock, error) {
	return locksBetween(ctx, t.tx, storeID, from, to, now)
}

func (t *txStore) LockStore(ctx context.Context, storeID uuid.UUID) error {
	var id uuid.UUID
	err := t.tx.QueryRow(ctx, `SELECT id FROM stores WHERE id = $1 FOR UPDATE`, storeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrStoreNotFound
	}
	return storageErr(err, "lock store")
}

func (t *txStore) InsertBooking(ctx context.Context, b *domain.Booking) error {
	return insertBooking(ctx, t.tx, b)
}

func (t *txStore) DeleteSessionLocks(ctx context.Context, sessionID string) (int64, error) {
	return deleteSessionLocks(ctx, t.tx, sessionID)
}

func (t *txStore) InsertOutbox(ctx context.Context, ev domain.OutboxEvent) error {
	return insertOutbox(ctx, t.tx, ev)
}
