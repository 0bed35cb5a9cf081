// Package storagetest provides an in-memory implementation of the storage
// capabilities for tests. Transactions run one at a time and their writes
// are discarded unless fn returns nil.
package storagetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/storage"
)

var (
	_ storage.Reader       = (*Memory)(nil)
	_ storage.TxRunner     = (*Memory)(nil)
	_ storage.LockStore    = (*Memory)(nil)
	_ storage.BookingStore = (*Memory)(nil)
	_ storage.AdminStore   = (*Memory)(nil)
)

type Memory struct {
	txMu sync.Mutex
	mu   sync.Mutex

	stores      map[uuid.UUID]domain.Store
	services    map[uuid.UUID]domain.Service
	technicians map[uuid.UUID]domain.Technician
	bookings    map[uuid.UUID]domain.Booking
	blocks      map[uuid.UUID]domain.AvailabilityBlock
	locks       map[uuid.UUID]domain.ReservationLock
	outbox      []domain.OutboxEvent

	// FailOutbox, when set, is returned by every outbox insert.
	FailOutbox error
	// FailPurge, when set, is returned by DeleteExpiredLocks.
	FailPurge error
	// TxHook runs inside every transaction after fn succeeds and before commit.
	TxHook func()
}

func NewMemory() *Memory {
	return &Memory{
		stores:      map[uuid.UUID]domain.Store{},
		services:    map[uuid.UUID]domain.Service{},
		technicians: map[uuid.UUID]domain.Technician{},
		bookings:    map[uuid.UUID]domain.Booking{},
		blocks:      map[uuid.UUID]domain.AvailabilityBlock{},
		locks:       map[uuid.UUID]domain.ReservationLock{},
	}
}

func (m *Memory) AddStore(s domain.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[s.ID] = s
}

func (m *Memory) AddService(s domain.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[s.ID] = s
}

func (m *Memory) AddTechnician(t domain.Technician) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.technicians[t.ID] = t
}

func (m *Memory) AddBooking(b domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
}

func (m *Memory) AddLock(l domain.ReservationLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[l.ID] = l
}

func (m *Memory) Bookings() []domain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (m *Memory) Locks() []domain.ReservationLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ReservationLock, 0, len(m.locks))
	for _, l := range m.locks {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (m *Memory) Outbox() []domain.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutboxEvent(nil), m.outbox...)
}

func (m *Memory) StoreByID(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return nil, domain.ErrStoreNotFound
	}
	return &s, nil
}

func (m *Memory) ServiceByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, domain.ErrServiceNotFound
	}
	return &s, nil
}

func (m *Memory) TechnicianByID(ctx context.Context, id uuid.UUID) (*domain.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.technicians[id]
	if !ok {
		return nil, domain.ErrTechnicianNotFound
	}
	return &t, nil
}

func (m *Memory) BookingsBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bookingsBetween(m.bookings, nil, storeID, from, to), nil
}

func (m *Memory) BlocksBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]domain.AvailabilityBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AvailabilityBlock
	for _, b := range m.blocks {
		if b.StoreID == storeID && domain.Overlaps(b.Start, b.End, from, to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) LocksBetween(ctx context.Context, storeID uuid.UUID, from, to, now time.Time) ([]domain.ReservationLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return locksBetween(m.locks, nil, storeID, from, to, now), nil
}

func (m *Memory) ReplaceSessionLock(ctx context.Context, lock *domain.ReservationLock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[lock.StoreID]; !ok {
		return domain.ErrStoreNotFound
	}
	for id, l := range m.locks {
		if l.SessionID == lock.SessionID {
			delete(m.locks, id)
		}
	}
	m.locks[lock.ID] = *lock
	return nil
}

func (m *Memory) DeleteSessionLocks(ctx context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, l := range m.locks {
		if l.SessionID == sessionID {
			delete(m.locks, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) DeleteExpiredLocks(ctx context.Context, now time.Time) ([]domain.ReservationLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPurge != nil {
		return nil, m.FailPurge
	}
	var purged []domain.ReservationLock
	for id, l := range m.locks {
		if !l.ActiveAt(now) {
			purged = append(purged, l)
			delete(m.locks, id)
		}
	}
	return purged, nil
}

func (m *Memory) BookingByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return &b, nil
}

func (m *Memory) BookingByToken(ctx context.Context, token string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.Token == token {
			return &b, nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

func (m *Memory) UpdateBooking(ctx context.Context, id uuid.UUID, expected domain.BookingStatus, upd domain.BookingUpdate, now time.Time, ev *domain.OutboxEvent) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if b.Status != expected {
		return nil, domain.ErrStaleUpdate
	}
	if ev != nil && m.FailOutbox != nil {
		return nil, m.FailOutbox
	}
	if upd.Status != nil {
		b.Status = *upd.Status
	}
	if upd.Notes != nil {
		b.Notes = *upd.Notes
	}
	b.UpdatedAt = now
	m.bookings[id] = b
	if ev != nil {
		m.outbox = append(m.outbox, *ev)
	}
	return &b, nil
}

func (m *Memory) InsertBlock(ctx context.Context, b *domain.AvailabilityBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[b.StoreID]; !ok {
		return domain.ErrStoreNotFound
	}
	m.blocks[b.ID] = *b
	return nil
}

func (m *Memory) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[id]; !ok {
		return domain.ErrBlockNotFound
	}
	delete(m.blocks, id)
	return nil
}

func (m *Memory) UpdateStore(ctx context.Context, id uuid.UUID, upd domain.StoreUpdate, now time.Time) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return nil, domain.ErrStoreNotFound
	}
	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.OpeningHours != nil {
		s.OpeningHours = *upd.OpeningHours
	}
	if upd.Active != nil {
		s.Active = *upd.Active
	}
	s.UpdatedAt = now
	m.stores[id] = s
	return &s, nil
}

func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memTx{m: m, deletedSessions: map[string]bool{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if m.TxHook != nil {
		m.TxHook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range tx.bookings {
		m.bookings[b.ID] = b
	}
	for session := range tx.deletedSessions {
		for id, l := range m.locks {
			if l.SessionID == session {
				delete(m.locks, id)
			}
		}
	}
	m.outbox = append(m.outbox, tx.outbox...)
	return nil
}

type memTx struct {
	m               *Memory
	bookings        []domain.Booking
	deletedSessions map[string]bool
	outbox          []domain.OutboxEvent
}

func (t *memTx) StoreByID(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	return t.m.StoreByID(ctx, id)
}

func (t *memTx) ServiceByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	return t.m.ServiceByID(ctx, id)
}

func (t *memTx) TechnicianByID(ctx context.Context, id uuid.UUID) (*domain.Technician, error) {
	return t.m.TechnicianByID(ctx, id)
}

func (t *memTx) BookingsBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return bookingsBetween(t.m.bookings, t.bookings, storeID, from, to), nil
}

func (t *memTx) BlocksBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]domain.AvailabilityBlock, error) {
	return t.m.BlocksBetween(ctx, storeID, from, to)
}

func (t *memTx) LocksBetween(ctx context.Context, storeID uuid.UUID, from, to, now time.Time) ([]domain.ReservationLock, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return locksBetween(t.m.locks, t.deletedSessions, storeID, from, to, now), nil
}

func (t *memTx) LockStore(ctx context.Context, storeID uuid.UUID) error {
	_, err := t.m.StoreByID(ctx, storeID)
	return err
}

func (t *memTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	t.bookings = append(t.bookings, *b)
	return nil
}

func (t *memTx) DeleteSessionLocks(ctx context.Context, sessionID string) (int64, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var n int64
	for _, l := range t.m.locks {
		if l.SessionID == sessionID && !t.deletedSessions[sessionID] {
			n++
		}
	}
	t.deletedSessions[sessionID] = true
	return n, nil
}

func (t *memTx) InsertOutbox(ctx context.Context, ev domain.OutboxEvent) error {
	if t.m.FailOutbox != nil {
		return t.m.FailOutbox
	}
	t.outbox = append(t.outbox, ev)
	return nil
}

func bookingsBetween(committed map[uuid.UUID]domain.Booking, pending []domain.Booking, storeID uuid.UUID, from, to time.Time) []domain.Booking {
	var out []domain.Booking
	keep := func(b domain.Booking) {
		if b.StoreID == storeID && b.Status.Occupies() && domain.Overlaps(b.Start, b.End, from, to) {
			out = append(out, b)
		}
	}
	for _, b := range committed {
		keep(b)
	}
	for _, b := range pending {
		keep(b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func locksBetween(all map[uuid.UUID]domain.ReservationLock, skipSessions map[string]bool, storeID uuid.UUID, from, to, now time.Time) []domain.ReservationLock {
	var out []domain.ReservationLock
	for _, l := range all {
		if l.StoreID != storeID || !l.ActiveAt(now) || skipSessions[l.SessionID] {
			continue
		}
		if domain.Overlaps(l.Start, l.End, from, to) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
