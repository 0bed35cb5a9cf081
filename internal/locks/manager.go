package locks

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/robertarktes/workshop-bookings/internal/clock"
	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/observability"
	"github.com/robertarktes/workshop-bookings/internal/storage"
)

type AcquireRequest struct {
	StoreID      uuid.UUID
	Start        time.Time
	End          time.Time
	SessionID    string
	TechnicianID *uuid.UUID
}

// Manager creates and removes soft holds on slots. A hold only hides the
// slot from other sessions; the booking transaction remains the authority.
type Manager struct {
	store storage.LockStore
	clock clock.Clock
	ttl   time.Duration
}

func NewManager(store storage.LockStore, clk clock.Clock, ttl time.Duration) *Manager {
	return &Manager{store: store, clock: clk, ttl: ttl}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// AcquireLock holds [req.Start, req.End) for req.SessionID until now+TTL,
// replacing any earlier hold of the same session. Availability is not
// re-checked here.
func (m *Manager) AcquireLock(ctx context.Context, req AcquireRequest) (*domain.ReservationLock, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, errors.Wrap(domain.ErrInvalidInput, "session id is required")
	}
	iv, err := domain.NewInterval(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	lock := domain.NewReservationLock(req.StoreID, req.TechnicianID, iv, sessionID, m.clock.Now(), m.ttl)
	if err := m.store.ReplaceSessionLock(ctx, &lock); err != nil {
		return nil, err
	}
	observability.LocksAcquired.Inc()
	return &lock, nil
}

// ReleaseLock drops every hold owned by the session. Releasing a session
// without holds is not an error.
func (m *Manager) ReleaseLock(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.Wrap(domain.ErrInvalidInput, "session id is required")
	}
	_, err := m.store.DeleteSessionLocks(ctx, sessionID)
	return err
}

// PurgeExpiredLocks deletes holds whose expiry has passed and returns them.
func (m *Manager) PurgeExpiredLocks(ctx context.Context) ([]domain.ReservationLock, error) {
	purged, err := m.store.DeleteExpiredLocks(ctx, m.clock.Now())
	if err != nil {
		return nil, err
	}
	observability.LocksPurged.Add(float64(len(purged)))
	return purged, nil
}
