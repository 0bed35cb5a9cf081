package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

func insertOutbox(ctx context.Context, q querier, ev domain.OutboxEvent) error {
	_, err := q.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
	`, ev.ID, ev.AggregateType, ev.AggregateID, ev.EventType, ev.Payload, ev.DedupeKey)
	return storageErr(err, "insert outbox")
}

// ClaimOutbox locks up to limit unpublished records, hands them to publish
// and marks the ids it returns as published, all in one transaction.
// Records locked by a concurrent publisher are skipped.
func (r *Repository) ClaimOutbox(ctx context.Context, limit int, publish func(ctx context.Context, events []domain.OutboxEvent) []uuid.UUID) (int, error) {
	var published int
	err := r.inTxFunc(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload_json, dedupe_key, created_at
			FROM outbox WHERE status = 'NEW'
			ORDER BY created_at ASC LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return err
		}
		var events []domain.OutboxEvent
		for rows.Next() {
			var ev domain.OutboxEvent
			if err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.DedupeKey, &ev.CreatedAt); err != nil {
				rows.Close()
				return err
			}
			events = append(events, ev)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		// Records missing from ids stay NEW and are retried on the next poll.
		ids := publish(ctx, events)
		if len(ids) == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = ANY($1)
		`, ids, time.Now()); err != nil {
			return err
		}
		published = len(ids)
		return nil
	})
	return published, storageErr(err, "claim outbox")
}
