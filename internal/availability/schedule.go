package availability

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/robertarktes/workshop-bookings/internal/domain"
)

const clockLayout = "15:04"

// ResolveDay returns the opening interval of the store on the calendar day of
// date, interpreted in loc. ok is false when the store is closed that day or
// has no entry for it.
func ResolveDay(hours domain.OpeningHours, date time.Time, loc *time.Location) (window domain.Interval, ok bool, err error) {
	day := StartOfDay(date, loc)
	sched, found := hours[domain.WeekdayKey(day.Weekday())]
	if !found || sched.Closed {
		return domain.Interval{}, false, nil
	}

	open, err := clockOn(day, sched.Open)
	if err != nil {
		return domain.Interval{}, false, err
	}
	closeAt, err := clockOn(day, sched.Close)
	if err != nil {
		return domain.Interval{}, false, err
	}

	window, err = domain.NewInterval(open, closeAt)
	if err != nil {
		return domain.Interval{}, false, errors.Wrapf(err, "opening hours for %s", domain.WeekdayKey(day.Weekday()))
	}
	return window, true, nil
}

// ValidateOpeningHours checks every entry the way ResolveDay would read it.
func ValidateOpeningHours(hours domain.OpeningHours) error {
	for key, sched := range hours {
		if !isWeekdayKey(key) {
			return errors.Wrapf(domain.ErrInvalidInput, "unknown weekday %q", key)
		}
		if sched.Closed {
			continue
		}
		open, err := ParseClock(sched.Open)
		if err != nil {
			return err
		}
		closeAt, err := ParseClock(sched.Close)
		if err != nil {
			return err
		}
		if closeAt <= open {
			return errors.Wrapf(domain.ErrInvalidInterval, "opening hours for %s: close %s is not after open %s", key, sched.Close, sched.Open)
		}
	}
	return nil
}

// ParseClock parses "HH:mm" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, errors.Wrapf(domain.ErrInvalidInterval, "malformed time of day %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// StartOfDay returns local midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func clockOn(day time.Time, hhmm string) (time.Time, error) {
	off, err := ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	// Built from wall-clock fields so DST transition days keep the local time.
	return time.Date(day.Year(), day.Month(), day.Day(), int(off/time.Hour), int((off%time.Hour)/time.Minute), 0, 0, day.Location()), nil
}

func isWeekdayKey(key string) bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if domain.WeekdayKey(d) == key {
			return true
		}
	}
	return false
}
