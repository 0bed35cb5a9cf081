package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

const lockColumns = `id, store_id, technician_id, start_datetime, end_datetime, session_id, expires_at, created_at`

func scanLocks(rows pgx.Rows) ([]domain.ReservationLock, error) {
	defer rows.Close()

	var locks []domain.ReservationLock
	for rows.Next() {
		var l domain.ReservationLock
		if err := rows.Scan(&l.ID, &l.StoreID, &l.TechnicianID, &l.Start, &l.End, &l.SessionID, &l.ExpiresAt, &l.CreatedAt); err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}
	return locks, rows.Err()
}

func locksBetween(ctx context.Context, q querier, storeID uuid.UUID, from, to, now time.Time) ([]domain.ReservationLock, error) {
	rows, err := q.Query(ctx, `
		SELECT `+lockColumns+`
		FROM booking_locks
		WHERE store_id = $1 AND expires_at > $4
			AND start_datetime < $3 AND end_datetime > $2
		ORDER BY start_datetime
	`, storeID, from, to, now)
	if err != nil {
		return nil, storageErr(err, "list locks")
	}
	locks, err := scanLocks(rows)
	return locks, storageErr(err, "scan locks")
}

func deleteSessionLocks(ctx context.Context, q querier, sessionID string) (int64, error) {
	result, err := q.Exec(ctx, `DELETE FROM booking_locks WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, storageErr(err, "delete session locks")
	}
	return result.RowsAffected(), nil
}

func (r *Repository) LocksBetween(ctx context.Context, storeID uuid.UUID, from, to, now time.Time) ([]domain.ReservationLock, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return locksBetween(ctx, r.pool, storeID, from, to, now)
}

func (r *Repository) ReplaceSessionLock(ctx context.Context, lock *domain.ReservationLock) error {
	err := r.inTxFunc(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := deleteSessionLocks(ctx, tx, lock.SessionID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO booking_locks (`+lockColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, lock.ID, lock.StoreID, lock.TechnicianID, lock.Start, lock.End, lock.SessionID, lock.ExpiresAt, lock.CreatedAt)
		return err
	})
	if pgCode(err) == ForeignKeyViolationCode {
		return domain.ErrStoreNotFound
	}
	return storageErr(err, "replace session lock")
}

func (r *Repository) DeleteSessionLocks(ctx context.Context, sessionID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return deleteSessionLocks(ctx, r.pool, sessionID)
}

func (r *Repository) DeleteExpiredLocks(ctx context.Context, now time.Time) ([]domain.ReservationLock, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		DELETE FROM booking_locks WHERE expires_at <= $1
		RETURNING `+lockColumns, now)
	if err != nil {
		return nil, storageErr(err, "purge locks")
	}
	locks, err := scanLocks(rows)
	return locks, storageErr(err, "purge locks")
}
