package availability

import (
	"time"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

// Occupancy is everything that can take a slot on a given store day.
type Occupancy struct {
	Bookings []domain.Booking
	Blocks   []domain.AvailabilityBlock
	Locks    []domain.ReservationLock
}

// MarkConflicts flips Available to false, in place, on every slot that starts
// before now or overlaps an occupancy in the same technician scope. Bookings
// occupy [start, end+buffer); blocks and locks occupy exactly their interval.
// Cancelled bookings and locks expired at now are ignored.
func MarkConflicts(slots []domain.TimeSlot, occ Occupancy, buffer time.Duration, now time.Time) {
	for i := range slots {
		if slotTaken(slots[i], occ, buffer, now) {
			slots[i].Available = false
		}
	}
}

func slotTaken(slot domain.TimeSlot, occ Occupancy, buffer time.Duration, now time.Time) bool {
	if slot.Start.Before(now) {
		return true
	}
	iv := slot.Interval()

	for _, b := range occ.Bookings {
		if !b.Status.Occupies() || !domain.SameScope(slot.TechnicianID, b.TechnicianID) {
			continue
		}
		if iv.Overlaps(b.Interval().ExtendEnd(buffer)) {
			return true
		}
	}
	for _, b := range occ.Blocks {
		if domain.SameScope(slot.TechnicianID, b.TechnicianID) && iv.Overlaps(b.Interval()) {
			return true
		}
	}
	for _, l := range occ.Locks {
		if !l.ActiveAt(now) || !domain.SameScope(slot.TechnicianID, l.TechnicianID) {
			continue
		}
		if iv.Overlaps(l.Interval()) {
			return true
		}
	}
	return false
}
