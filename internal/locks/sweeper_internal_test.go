package locks

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/workshop-bookings/internal/clock"
	"github.com/robertarktes/workshop-bookings/internal/observability"
	"github.com/robertarktes/workshop-bookings/internal/storage/storagetest"
)

func TestPurgeWithRetryDoesNotWaitAfterLastAttempt(t *testing.T) {
	fx := storagetest.NewFixture()
	fx.Mem.FailPurge = errors.New("connection refused")
	m := NewManager(fx.Mem, clock.NewMockClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)), 10*time.Minute)

	sw := NewSweeper(m, time.Hour, nil, observability.NewLogger("error"))
	var waits []time.Duration
	sw.wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	purged, err := sw.purgeWithRetry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, purged)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
}

func TestPurgeWithRetryRecovers(t *testing.T) {
	fx := storagetest.NewFixture()
	fx.Mem.FailPurge = errors.New("connection refused")
	m := NewManager(fx.Mem, clock.NewMockClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)), 10*time.Minute)

	sw := NewSweeper(m, time.Hour, nil, observability.NewLogger("error"))
	calls := 0
	sw.wait = func(ctx context.Context, d time.Duration) error {
		calls++
		fx.Mem.FailPurge = nil
		return nil
	}

	_, err := sw.purgeWithRetry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPurgeWithRetryStopsOnCancel(t *testing.T) {
	fx := storagetest.NewFixture()
	fx.Mem.FailPurge = errors.New("connection refused")
	m := NewManager(fx.Mem, clock.NewMockClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)), 10*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSweeper(m, time.Hour, nil, observability.NewLogger("error")).purgeWithRetry(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
