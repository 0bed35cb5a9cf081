package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

const bookingColumns = `id, booking_token, store_id, service_id, technician_id, start_datetime, end_datetime,
	status, customer_name, customer_email, customer_phone, notes, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var status string
	err := row.Scan(&b.ID, &b.Token, &b.StoreID, &b.ServiceID, &b.TechnicianID, &b.Start, &b.End,
		&status, &b.Customer.Name, &b.Customer.Email, &b.Customer.Phone, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = domain.BookingStatus(status)
	return &b, nil
}

func bookingsBetween(ctx context.Context, q querier, storeID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE store_id = $1 AND status <> 'cancelled'
			AND start_datetime < $3 AND end_datetime > $2
		ORDER BY start_datetime
	`, storeID, from, to)
	if err != nil {
		return nil, storageErr(err, "list bookings")
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storageErr(err, "scan booking")
		}
		bookings = append(bookings, *b)
	}
	return bookings, storageErr(rows.Err(), "list bookings")
}

func insertBooking(ctx context.Context, q querier, b *domain.Booking) error {
	_, err := q.Exec(ctx, `
		INSERT INTO bookings (id, booking_token, store_id, service_id, technician_id, start_datetime, end_datetime,
			status, customer_name, customer_email, customer_phone, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, b.ID, b.Token, b.StoreID, b.ServiceID, b.TechnicianID, b.Start, b.End,
		string(b.Status), b.Customer.Name, b.Customer.Email, b.Customer.Phone, b.Notes, b.CreatedAt, b.UpdatedAt)
	return storageErr(err, "insert booking")
}

func (r *Repository) BookingsBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return bookingsBetween(ctx, r.pool, storeID, from, to)
}

func (r *Repository) BookingByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, storageErr(err, "get booking")
}

func (r *Repository) BookingByToken(ctx context.Context, token string) (*domain.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_token = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, storageErr(err, "get booking by token")
}

// UpdateBooking applies upd when the booking is still in status expected and,
// when ev is set, records it in the outbox within the same transaction.
func (r *Repository) UpdateBooking(ctx context.Context, id uuid.UUID, expected domain.BookingStatus, upd domain.BookingUpdate, now time.Time, ev *domain.OutboxEvent) (*domain.Booking, error) {
	var status *string
	if upd.Status != nil {
		s := string(*upd.Status)
		status = &s
	}

	var updated *domain.Booking
	err := r.inTxFunc(ctx, func(ctx context.Context, tx pgx.Tx) error {
		b, err := scanBooking(tx.QueryRow(ctx, `
			UPDATE bookings SET
				status = COALESCE($3::TEXT, status),
				notes = COALESCE($4::TEXT, notes),
				updated_at = $5
			WHERE id = $1 AND status = $2
			RETURNING `+bookingColumns, id, string(expected), status, upd.Notes, now))
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return domain.ErrBookingNotFound
			}
			return domain.ErrStaleUpdate
		}
		if err != nil {
			return err
		}

		if ev != nil {
			if err := insertOutbox(ctx, tx, *ev); err != nil {
				return err
			}
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "update booking")
	}
	return updated, nil
}
