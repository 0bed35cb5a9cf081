package availability

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

// GenerateSlots enumerates candidate slots [t, t+duration) starting at the
// window's open time and advancing by step, while the slot still ends by close.
// All candidates start out available; the buffer is applied later by MarkConflicts.
func GenerateSlots(window domain.Interval, duration, step time.Duration) ([]domain.TimeSlot, error) {
	if duration <= 0 {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "service duration must be positive, got %s", duration)
	}
	if step <= 0 {
		return nil, errors.Wrapf(domain.ErrInvalidInput, "slot step must be positive, got %s", step)
	}

	slots := make([]domain.TimeSlot, 0, int(window.Duration()/step)+1)
	for t := window.Start; !t.Add(duration).After(window.End); t = t.Add(step) {
		slots = append(slots, domain.TimeSlot{
			Start:     t,
			End:       t.Add(duration),
			Available: true,
		})
	}
	return slots, nil
}
