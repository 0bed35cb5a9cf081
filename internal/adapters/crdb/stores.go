package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

const storeColumns = `id, name, opening_hours, active, created_at, updated_at`

func scanStore(row pgx.Row) (*domain.Store, error) {
	var s domain.Store
	var hours []byte
	if err := row.Scan(&s.ID, &s.Name, &hours, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(hours, &s.OpeningHours); err != nil {
		return nil, errors.Wrapf(err, "decode opening hours of store %s", s.ID)
	}
	return &s, nil
}

func storeByID(ctx context.Context, q querier, id uuid.UUID) (*domain.Store, error) {
	s, err := scanStore(q.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStoreNotFound
	}
	return s, storageErr(err, "get store")
}

func serviceByID(ctx context.Context, q querier, id uuid.UUID) (*domain.Service, error) {
	var s domain.Service
	err := q.QueryRow(ctx, `
		SELECT id, store_id, name, duration_minutes, active
		FROM services WHERE id = $1
	`, id).Scan(&s.ID, &s.StoreID, &s.Name, &s.DurationMinutes, &s.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrServiceNotFound
	}
	if err != nil {
		return nil, storageErr(err, "get service")
	}
	return &s, nil
}

func technicianByID(ctx context.Context, q querier, id uuid.UUID) (*domain.Technician, error) {
	var t domain.Technician
	err := q.QueryRow(ctx, `
		SELECT id, store_id, name, active
		FROM technicians WHERE id = $1
	`, id).Scan(&t.ID, &t.StoreID, &t.Name, &t.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTechnicianNotFound
	}
	if err != nil {
		return nil, storageErr(err, "get technician")
	}
	return &t, nil
}

func (r *Repository) StoreByID(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return storeByID(ctx, r.pool, id)
}

func (r *Repository) ServiceByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return serviceByID(ctx, r.pool, id)
}

func (r *Repository) TechnicianByID(ctx context.Context, id uuid.UUID) (*domain.Technician, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return technicianByID(ctx, r.pool, id)
}

// UpdateStore applies the non-nil fields of upd in a single statement.
func (r *Repository) UpdateStore(ctx context.Context, id uuid.UUID, upd domain.StoreUpdate, now time.Time) (*domain.Store, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var hours []byte
	if upd.OpeningHours != nil {
		var err error
		if hours, err = json.Marshal(*upd.OpeningHours); err != nil {
			return nil, errors.Wrap(err, "encode opening hours")
		}
	}

	s, err := scanStore(r.pool.QueryRow(ctx, `
		UPDATE stores SET
			name = COALESCE($2::TEXT, name),
			opening_hours = COALESCE($3::JSONB, opening_hours),
			active = COALESCE($4::BOOL, active),
			updated_at = $5
		WHERE id = $1
		RETURNING `+storeColumns, id, upd.Name, hours, upd.Active, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStoreNotFound
	}
	return s, storageErr(err, "update store")
}
