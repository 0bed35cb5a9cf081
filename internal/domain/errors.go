package domain

import "github.com/cockroachdb/errors"

var (
	ErrStoreNotFound      = errors.New("store not found")
	ErrServiceNotFound    = errors.New("service not found")
	ErrTechnicianNotFound = errors.New("technician not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrBlockNotFound      = errors.New("availability block not found")

	ErrInvalidInterval = errors.New("invalid interval: end must be after start")
	ErrInvalidInput    = errors.New("invalid input")

	// ErrSlotConflict is returned when the authoritative re-check inside the
	// booking transaction finds the requested slot taken.
	ErrSlotConflict            = errors.New("slot is no longer available")
	ErrInvalidStatusTransition = errors.New("invalid booking status transition")
	ErrStaleUpdate             = errors.New("booking was modified concurrently")

	ErrTransientStorage     = errors.New("transient storage failure")
	ErrSerializationFailure = errors.New("serialization failure")
)

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.IsAny(err, ErrStoreNotFound, ErrServiceNotFound, ErrTechnicianNotFound, ErrBookingNotFound, ErrBlockNotFound)
}
