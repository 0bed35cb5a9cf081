package domain

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, errors.Wrapf(ErrInvalidInterval, "start=%s end=%s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// ExtendEnd returns the interval with d added to its end.
func (i Interval) ExtendEnd(d time.Duration) Interval {
	return Interval{Start: i.Start, End: i.End.Add(d)}
}

func AddMinutes(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * time.Minute)
}

func IsBefore(t1, t2 time.Time) bool {
	return t1.Before(t2)
}

func IsAfter(t1, t2 time.Time) bool {
	return t1.After(t2)
}
