package locks

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/observability"
)

// ExpiryNotifier is told about purged holds, e.g. to publish lock.expired.
type ExpiryNotifier interface {
	LocksExpired(ctx context.Context, locks []domain.ReservationLock) error
}

// Sweeper periodically purges expired reservation locks.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	notifier ExpiryNotifier
	logger   observability.Logger
	wait     func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(manager *Manager, interval time.Duration, notifier ExpiryNotifier, logger observability.Logger) *Sweeper {
	return &Sweeper{manager: manager, interval: interval, notifier: notifier, logger: logger, wait: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Start runs the sweeper in the background. Calling Start on a running
// sweeper does nothing.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
}

// Stop cancels a started sweeper and waits for the current sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) sweep(ctx context.Context) {
	purged, err := s.purgeWithRetry(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.WithError(err).Error("failed to purge expired locks")
		}
		return
	}
	if len(purged) == 0 {
		return
	}

	s.logger.WithField("count", len(purged)).Info("purged expired reservation locks")
	if s.notifier == nil {
		return
	}
	if err := s.notifier.LocksExpired(ctx, purged); err != nil {
		s.logger.WithError(err).Warn("failed to publish lock expiry")
	}
}

func (s *Sweeper) purgeWithRetry(ctx context.Context) ([]domain.ReservationLock, error) {
	const maxRetries = 3
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		purged, err := s.manager.PurgeExpiredLocks(ctx)
		if err == nil {
			return purged, nil
		}
		lastErr = err
		if i == maxRetries-1 {
			break
		}

		if err := s.wait(ctx, time.Duration(1<<i)*time.Second); err != nil {
			return nil, err
		}
	}
	return nil, errors.Wrapf(lastErr, "purge failed after %d retries", maxRetries)
}
