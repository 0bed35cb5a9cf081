package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/observability"
)

type memStore struct {
	mu        sync.Mutex
	pending   []domain.OutboxEvent
	published []uuid.UUID
}

func (s *memStore) ClaimOutbox(ctx context.Context, limit int, publish func(ctx context.Context, events []domain.OutboxEvent) []uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.pending
	if len(batch) > limit {
		batch = batch[:limit]
	}
	ids := publish(ctx, batch)
	done := map[uuid.UUID]bool{}
	for _, id := range ids {
		done[id] = true
	}
	kept := s.pending[:0:0]
	for _, ev := range s.pending {
		if !done[ev.ID] {
			kept = append(kept, ev)
		}
	}
	s.pending = kept
	s.published = append(s.published, ids...)
	return len(ids), nil
}

func (s *memStore) remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

type fakeBroker struct {
	mu       sync.Mutex
	sent     []uuid.UUID
	failures map[uuid.UUID]int
}

func (b *fakeBroker) PublishEvent(ctx context.Context, ev domain.OutboxEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures[ev.ID] > 0 {
		b.failures[ev.ID]--
		return errors.New("channel closed")
	}
	b.sent = append(b.sent, ev.ID)
	return nil
}

func events(n int) []domain.OutboxEvent {
	out := make([]domain.OutboxEvent, n)
	for i := range out {
		out[i] = domain.OutboxEvent{
			ID:          uuid.New(),
			EventType:   domain.EventBookingCreated,
			AggregateID: uuid.New(),
			Payload:     []byte(`{}`),
			CreatedAt:   time.Now(),
		}
	}
	return out
}

func newPublisher(store Store, broker Broker, batch int) *Publisher {
	p := NewPublisher(store, broker, observability.NewLogger("error"), 10*time.Millisecond, batch)
	p.retryBase = time.Millisecond
	return p
}

func TestPublishBatchInOrder(t *testing.T) {
	evs := events(3)
	store := &memStore{pending: evs}
	broker := &fakeBroker{}

	n, err := newPublisher(store, broker, 10).PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []uuid.UUID{evs[0].ID, evs[1].ID, evs[2].ID}, broker.sent)
	assert.Zero(t, store.remaining())
}

func TestPublishBatchRetriesTransientFailure(t *testing.T) {
	evs := events(2)
	store := &memStore{pending: evs}
	broker := &fakeBroker{failures: map[uuid.UUID]int{evs[0].ID: 2}}

	n, err := newPublisher(store, broker, 10).PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPublishBatchStopsAtFirstFailure(t *testing.T) {
	evs := events(3)
	store := &memStore{pending: evs}
	broker := &fakeBroker{failures: map[uuid.UUID]int{evs[1].ID: 10}}

	n, err := newPublisher(store, broker, 10).PublishBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{evs[0].ID}, broker.sent)
	assert.Equal(t, 2, store.remaining(), "the failed event and everything after it stay pending")
}

func TestRunDrainsBatches(t *testing.T) {
	store := &memStore{pending: events(7)}
	p := newPublisher(store, &fakeBroker{}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	assert.Eventually(t, func() bool { return store.remaining() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
