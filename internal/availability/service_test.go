package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/workshop-bookings/internal/availability"
	"github.com/robertarktes/workshop-bookings/internal/clock"
	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/storage/storagetest"
)

// Monday 08:00. With the default 48h lead the first bookable day is Wednesday.
var monday = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*availability.Service, *storagetest.Fixture, *clock.MockClock) {
	t.Helper()
	fx := storagetest.NewFixture()
	clk := clock.NewMockClock(monday)
	return availability.NewService(fx.Mem, clk, availability.DefaultPolicy()), fx, clk
}

func query(fx *storagetest.Fixture, date time.Time) availability.Query {
	return availability.Query{StoreID: fx.Store.ID, ServiceID: fx.Service.ID, Date: date}
}

func countAvailable(slots []domain.TimeSlot) int {
	n := 0
	for _, s := range slots {
		if s.Available {
			n++
		}
	}
	return n
}

func TestAvailableSlotsOpenDay(t *testing.T) {
	svc, fx, _ := newService(t)

	slots, err := svc.AvailableSlots(context.Background(), query(fx, day(2025, 3, 13)))
	require.NoError(t, err)
	require.Len(t, slots, 15)
	assert.Equal(t, 15, countAvailable(slots))
}

func TestAvailableSlotsClosedDayIgnoresOccupancy(t *testing.T) {
	svc, fx, _ := newService(t)
	sunday := day(2025, 3, 16)
	fx.Mem.AddBooking(fx.Booking(sunday.Add(10*time.Hour), 60, nil))

	slots, err := svc.AvailableSlots(context.Background(), query(fx, sunday))
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestAvailableSlotsLeadTimeGate(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := context.Background()

	slots, err := svc.AvailableSlots(ctx, query(fx, monday.Add(24*time.Hour)))
	require.NoError(t, err)
	assert.Empty(t, slots, "tomorrow is inside the lead time")

	slots, err = svc.AvailableSlots(ctx, query(fx, monday.Add(49*time.Hour)))
	require.NoError(t, err)
	assert.NotEmpty(t, slots)
	assert.Equal(t, len(slots), countAvailable(slots))
}

func TestAvailableSlotsLeadCutoffWithinDay(t *testing.T) {
	svc, fx, clk := newService(t)
	clk.Set(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	// The cutoff is Wednesday 12:00, so the morning of Wednesday is shown but not bookable.
	slots, err := svc.AvailableSlots(context.Background(), query(fx, day(2025, 3, 12)))
	require.NoError(t, err)
	require.Len(t, slots, 15)
	for _, s := range slots {
		assert.Equal(t, !s.Start.Before(time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)), s.Available, s.Start.Format("15:04"))
	}
}

func TestAvailableSlotsHorizon(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := context.Background()

	slots, err := svc.AvailableSlots(ctx, query(fx, day(2025, 6, 10)))
	require.NoError(t, err)
	assert.NotEmpty(t, slots)

	slots, err = svc.AvailableSlots(ctx, query(fx, day(2025, 6, 11)))
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailableSlotsIdempotentRequery(t *testing.T) {
	svc, fx, _ := newService(t)
	thursday := day(2025, 3, 13)
	fx.Mem.AddBooking(fx.Booking(thursday.Add(11*time.Hour), 60, nil))
	ctx := context.Background()

	first, err := svc.AvailableSlots(ctx, query(fx, thursday))
	require.NoError(t, err)
	second, err := svc.AvailableSlots(ctx, query(fx, thursday))
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("re-query differs (-first +second):\n%s", diff)
	}
}

func TestAvailableSlotsBlockCoversDay(t *testing.T) {
	svc, fx, _ := newService(t)
	thursday := day(2025, 3, 13)
	require.NoError(t, fx.Mem.InsertBlock(context.Background(), &domain.AvailabilityBlock{
		ID:      uuid.New(),
		StoreID: fx.Store.ID,
		Start:   thursday.Add(9 * time.Hour),
		End:     thursday.Add(19 * time.Hour),
	}))

	slots, err := svc.AvailableSlots(context.Background(), query(fx, thursday))
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Zero(t, countAvailable(slots))
}

func TestAvailableSlotsTechnician(t *testing.T) {
	svc, fx, _ := newService(t)
	thursday := day(2025, 3, 13)
	other := uuid.New()
	fx.Mem.AddBooking(fx.Booking(thursday.Add(10*time.Hour), 60, &other))
	fx.Mem.AddBooking(fx.Booking(thursday.Add(14*time.Hour), 60, nil))

	q := query(fx, thursday)
	q.TechnicianID = &fx.Technician.ID
	slots, err := svc.AvailableSlots(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, slots, 15)

	for _, s := range slots {
		require.NotNil(t, s.TechnicianID)
		assert.Equal(t, fx.Technician.ID, *s.TechnicianID)
		assert.Equal(t, "Ana", s.TechnicianName)
	}
	// Only the store-wide booking at 14:00 (+15m buffer) applies to this technician.
	assert.Equal(t, []string{"13:30", "14:00", "14:30", "15:00"}, unavailableStarts(slots))
}

func TestAvailableSlotsNotFound(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := context.Background()
	thursday := day(2025, 3, 13)

	inactive := domain.Store{ID: uuid.New(), Name: "Closed down", OpeningHours: storagetest.WeekHours("09:00", "17:00")}
	fx.Mem.AddStore(inactive)
	foreign := domain.Technician{ID: uuid.New(), StoreID: inactive.ID, Name: "Bo", Active: true}
	fx.Mem.AddTechnician(foreign)

	cases := []struct {
		name string
		q    availability.Query
		err  error
	}{
		{"unknown store", availability.Query{StoreID: uuid.New(), ServiceID: fx.Service.ID, Date: thursday}, domain.ErrStoreNotFound},
		{"inactive store", availability.Query{StoreID: inactive.ID, ServiceID: fx.Service.ID, Date: thursday}, domain.ErrStoreNotFound},
		{"unknown service", availability.Query{StoreID: fx.Store.ID, ServiceID: uuid.New(), Date: thursday}, domain.ErrServiceNotFound},
		{"technician of another store", availability.Query{StoreID: fx.Store.ID, ServiceID: fx.Service.ID, Date: thursday, TechnicianID: &foreign.ID}, domain.ErrTechnicianNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AvailableSlots(ctx, tc.q)
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}
}

func TestAvailableSlotsServiceScopedToStore(t *testing.T) {
	svc, fx, _ := newService(t)
	second := domain.Store{ID: uuid.New(), Name: "Uptown", OpeningHours: storagetest.WeekHours("09:00", "17:00"), Active: true}
	fx.Mem.AddStore(second)

	_, err := svc.AvailableSlots(context.Background(), availability.Query{StoreID: second.ID, ServiceID: fx.Service.ID, Date: day(2025, 3, 13)})
	assert.True(t, errors.Is(err, domain.ErrServiceNotFound))

	global := domain.Service{ID: uuid.New(), Name: "Polish change", DurationMinutes: 30, Active: true}
	fx.Mem.AddService(global)
	slots, err := svc.AvailableSlots(context.Background(), availability.Query{StoreID: second.ID, ServiceID: global.ID, Date: day(2025, 3, 13)})
	require.NoError(t, err)
	assert.Len(t, slots, 16)
}

func TestFindSlotAndIsSlotAvailable(t *testing.T) {
	svc, fx, _ := newService(t)
	ctx := context.Background()
	thursday := day(2025, 3, 13)
	fx.Mem.AddBooking(fx.Booking(thursday.Add(10*time.Hour), 60, nil))

	sq := availability.SlotQuery{StoreID: fx.Store.ID, ServiceID: fx.Service.ID, Start: thursday.Add(9 * time.Hour)}
	ok, err := svc.IsSlotAvailable(ctx, sq)
	require.NoError(t, err)
	assert.True(t, ok)

	sq.Start = thursday.Add(10*time.Hour + 30*time.Minute)
	ok, err = svc.IsSlotAvailable(ctx, sq)
	require.NoError(t, err)
	assert.False(t, ok)

	sq.Start = thursday.Add(9*time.Hour + 10*time.Minute)
	slot, err := svc.FindSlot(ctx, sq)
	require.NoError(t, err)
	assert.Nil(t, slot, "off-grid start has no candidate")
}

func TestExcludeSessionHidesOwnLock(t *testing.T) {
	svc, fx, _ := newService(t)
	thursday := day(2025, 3, 13)
	fx.Mem.AddLock(domain.NewReservationLock(fx.Store.ID, nil,
		domain.Interval{Start: thursday.Add(14 * time.Hour), End: thursday.Add(15 * time.Hour)},
		"session-a", monday, 10*time.Minute))

	sq := availability.SlotQuery{StoreID: fx.Store.ID, ServiceID: fx.Service.ID, Start: thursday.Add(14 * time.Hour)}
	ok, err := svc.IsSlotAvailable(context.Background(), sq)
	require.NoError(t, err)
	assert.False(t, ok)

	sq.ExcludeSession = "session-a"
	ok, err = svc.IsSlotAvailable(context.Background(), sq)
	require.NoError(t, err)
	assert.True(t, ok)
}
