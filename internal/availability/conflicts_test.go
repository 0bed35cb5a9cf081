package availability_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/workshop-bookings/internal/availability"
	"github.com/robertarktes/workshop-bookings/internal/domain"
)

const buffer = 15 * time.Minute

var early = clockAt("00:00").AddDate(0, 0, -7)

func daySlots(t *testing.T, minutes int) []domain.TimeSlot {
	t.Helper()
	window := domain.Interval{Start: clockAt("09:00"), End: clockAt("17:00")}
	slots, err := availability.GenerateSlots(window, time.Duration(minutes)*time.Minute, 30*time.Minute)
	require.NoError(t, err)
	return slots
}

func unavailableStarts(slots []domain.TimeSlot) []string {
	var out []string
	for _, s := range slots {
		if !s.Available {
			out = append(out, s.Start.Format("15:04"))
		}
	}
	return out
}

func booking(start, end string, tech *uuid.UUID, status domain.BookingStatus) domain.Booking {
	return domain.Booking{ID: uuid.New(), Start: clockAt(start), End: clockAt(end), TechnicianID: tech, Status: status}
}

func TestMarkConflictsBufferIsEndOnly(t *testing.T) {
	slots := daySlots(t, 30)
	occ := availability.Occupancy{Bookings: []domain.Booking{booking("10:00", "11:00", nil, domain.BookingConfirmed)}}

	availability.MarkConflicts(slots, occ, buffer, early)

	assert.Equal(t, []string{"10:00", "10:30", "11:00"}, unavailableStarts(slots))
}

func TestMarkConflictsCancelledBookingIgnored(t *testing.T) {
	slots := daySlots(t, 60)
	occ := availability.Occupancy{Bookings: []domain.Booking{booking("10:00", "11:00", nil, domain.BookingCancelled)}}

	availability.MarkConflicts(slots, occ, buffer, early)

	assert.Empty(t, unavailableStarts(slots))
}

func TestMarkConflictsBlockHasNoBuffer(t *testing.T) {
	slots := daySlots(t, 60)
	occ := availability.Occupancy{Blocks: []domain.AvailabilityBlock{{
		ID: uuid.New(), Start: clockAt("12:00"), End: clockAt("13:00"),
	}}}

	availability.MarkConflicts(slots, occ, buffer, early)

	assert.Equal(t, []string{"11:30", "12:00", "12:30"}, unavailableStarts(slots))
}

func TestMarkConflictsLocks(t *testing.T) {
	now := early
	active := domain.ReservationLock{ID: uuid.New(), Start: clockAt("14:00"), End: clockAt("15:00"), ExpiresAt: now.Add(time.Minute)}
	expired := domain.ReservationLock{ID: uuid.New(), Start: clockAt("09:00"), End: clockAt("10:00"), ExpiresAt: now}

	slots := daySlots(t, 60)
	availability.MarkConflicts(slots, availability.Occupancy{Locks: []domain.ReservationLock{active, expired}}, buffer, now)

	assert.Equal(t, []string{"13:30", "14:00", "14:30"}, unavailableStarts(slots))
}

func TestMarkConflictsTechnicianScope(t *testing.T) {
	anna, ben := uuid.New(), uuid.New()
	occ := availability.Occupancy{Bookings: []domain.Booking{booking("10:00", "11:00", &anna, domain.BookingPending)}}

	other := daySlots(t, 60)
	for i := range other {
		other[i].TechnicianID = &ben
	}
	availability.MarkConflicts(other, occ, buffer, early)
	assert.Empty(t, unavailableStarts(other), "another technician is unaffected")

	same := daySlots(t, 60)
	for i := range same {
		same[i].TechnicianID = &anna
	}
	availability.MarkConflicts(same, occ, buffer, early)
	assert.Equal(t, []string{"09:30", "10:00", "10:30", "11:00"}, unavailableStarts(same))

	storeWide := daySlots(t, 60)
	availability.MarkConflicts(storeWide, occ, buffer, early)
	assert.Equal(t, []string{"09:30", "10:00", "10:30", "11:00"}, unavailableStarts(storeWide))
}

func TestMarkConflictsPastSlots(t *testing.T) {
	slots := daySlots(t, 60)

	availability.MarkConflicts(slots, availability.Occupancy{}, buffer, clockAt("10:15"))

	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, unavailableStarts(slots))
}
