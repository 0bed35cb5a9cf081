package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

func blocksBetween(ctx context.Context, q querier, storeID uuid.UUID, from, to time.Time) ([]domain.AvailabilityBlock, error) {
	rows, err := q.Query(ctx, `
		SELECT id, store_id, technician_id, start_datetime, end_datetime, reason, created_at
		FROM availability_blocks
		WHERE store_id = $1 AND start_datetime < $3 AND end_datetime > $2
		ORDER BY start_datetime
	`, storeID, from, to)
	if err != nil {
		return nil, storageErr(err, "list blocks")
	}
	defer rows.Close()

	var blocks []domain.AvailabilityBlock
	for rows.Next() {
		var b domain.AvailabilityBlock
		if err := rows.Scan(&b.ID, &b.StoreID, &b.TechnicianID, &b.Start, &b.End, &b.Reason, &b.CreatedAt); err != nil {
			return nil, storageErr(err, "scan block")
		}
		blocks = append(blocks, b)
	}
	return blocks, storageErr(rows.Err(), "list blocks")
}

func (r *Repository) BlocksBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]domain.AvailabilityBlock, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return blocksBetween(ctx, r.pool, storeID, from, to)
}

func (r *Repository) InsertBlock(ctx context.Context, b *domain.AvailabilityBlock) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_blocks (id, store_id, technician_id, start_datetime, end_datetime, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.StoreID, b.TechnicianID, b.Start, b.End, b.Reason, b.CreatedAt)
	if pgCode(err) == ForeignKeyViolationCode {
		return domain.ErrStoreNotFound
	}
	return storageErr(err, "insert block")
}

func (r *Repository) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result, err := r.pool.Exec(ctx, `DELETE FROM availability_blocks WHERE id = $1`, id)
	if err != nil {
		return storageErr(err, "delete block")
	}
	if result.RowsAffected() == 0 {
		return domain.ErrBlockNotFound
	}
	return nil
}
