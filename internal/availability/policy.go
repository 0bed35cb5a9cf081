package availability

import "time"

// Policy holds the tunable booking-window and slot-shape settings.
type Policy struct {
	MinLeadTime      time.Duration
	MaxHorizonMonths int
	Buffer           time.Duration
	SlotStep         time.Duration
	Location         *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		MinLeadTime:      48 * time.Hour,
		MaxHorizonMonths: 3,
		Buffer:           15 * time.Minute,
		SlotStep:         30 * time.Minute,
		Location:         time.UTC,
	}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// InWindow reports whether the calendar day falls between the day of
// now+lead and the day of now+horizon, both inclusive.
func (p Policy) InWindow(day, now time.Time) bool {
	loc := p.location()
	d := StartOfDay(day, loc)
	earliest := StartOfDay(now.Add(p.MinLeadTime), loc)
	latest := StartOfDay(now.AddDate(0, p.MaxHorizonMonths, 0), loc)
	return !d.Before(earliest) && !d.After(latest)
}

// LeadCutoff is the earliest instant a slot may start.
func (p Policy) LeadCutoff(now time.Time) time.Time {
	return now.Add(p.MinLeadTime)
}
