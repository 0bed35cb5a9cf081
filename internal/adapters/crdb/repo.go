package crdb

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/binary"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/observability"
	"github.com/robertarktes/workshop-bookings/internal/storage"
)

const (
	SerializationFailureCode = "40001"
	DeadlockDetectedCode     = "40P01"
	ForeignKeyViolationCode  = "23503"
	UniqueViolationCode      = "23505"
)

//go:embed schema.sql
var schemaSQL string

var (
	_ storage.Reader       = (*Repository)(nil)
	_ storage.TxRunner     = (*Repository)(nil)
	_ storage.LockStore    = (*Repository)(nil)
	_ storage.BookingStore = (*Repository)(nil)
	_ storage.AdminStore   = (*Repository)(nil)
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Options struct {
	// Timeout bounds every statement outside a transaction and every
	// transaction attempt.
	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
}

type Repository struct {
	pool *pgxpool.Pool
	opts Options
}

func NewRepository(pool *pgxpool.Pool, opts Options) *Repository {
	if opts.RetryBase <= 0 {
		opts.RetryBase = 20 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Repository{pool: pool, opts: opts}
}

// EnsureSchema creates missing tables and indexes. It never alters existing ones.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return storageErr(err, "apply schema")
}

func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return storageErr(r.pool.Ping(ctx), "ping")
}

// InTx runs fn in a SERIALIZABLE transaction, retrying serialization
// failures and deadlocks with jittered exponential backoff.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	var err error
	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			observability.DBTxRetries.Inc()
			select {
			case <-ctx.Done():
				return storageErr(ctx.Err(), "retry tx")
			case <-time.After(backoff(attempt-1, r.opts.RetryBase)):
			}
		}

		err = r.runTx(ctx, fn)
		if !isRetryable(err) {
			return err
		}
	}
	err = errors.Wrapf(err, "transaction gave up after %d retries", r.opts.MaxRetries)
	return errors.Mark(errors.Mark(err, domain.ErrSerializationFailure), domain.ErrTransientStorage)
}

func (r *Repository) runTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	started := time.Now()
	defer func() { observability.DBTxDuration.Observe(time.Since(started).Seconds()) }()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return storageErr(err, "begin tx")
	}
	defer tx.Rollback(context.Background())

	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		return err
	}
	return storageErr(tx.Commit(ctx), "commit tx")
}

// inTxFunc runs a short write that needs atomicity but not the booking
// transaction's serialization guarantees.
func (r *Repository) inTxFunc(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opts.Timeout)
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == SerializationFailureCode || pgErr.Code == DeadlockDetectedCode
	}
	return false
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// storageErr wraps a driver error and marks it transient. Domain sentinels
// pass through unchanged.
func storageErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.IsAny(err, domain.ErrStoreNotFound, domain.ErrServiceNotFound, domain.ErrTechnicianNotFound,
		domain.ErrBookingNotFound, domain.ErrBlockNotFound, domain.ErrStaleUpdate) {
		return err
	}
	return errors.Mark(errors.Wrap(err, op), domain.ErrTransientStorage)
}

func backoff(attempt int, base time.Duration) time.Duration {
	wait := time.Duration(1<<attempt) * base
	return wait + time.Duration(jitter(int64(wait/5)))
}

func jitter(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(buf[:])&(1<<63-1)) % n
}
