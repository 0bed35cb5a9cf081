package availability_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/workshop-bookings/internal/availability"
	"github.com/robertarktes/workshop-bookings/internal/domain"
	"github.com/robertarktes/workshop-bookings/internal/storage/storagetest"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveDay(t *testing.T) {
	hours := storagetest.WeekHours("09:00", "17:00")

	window, ok, err := availability.ResolveDay(hours, day(2025, 3, 10), time.UTC)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), window.Start)
	assert.Equal(t, time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC), window.End)

	_, ok, err = availability.ResolveDay(hours, day(2025, 3, 16), time.UTC)
	require.NoError(t, err)
	assert.False(t, ok, "sunday is closed")
}

func TestResolveDayMissingEntryIsClosed(t *testing.T) {
	hours := domain.OpeningHours{"monday": {Open: "09:00", Close: "17:00"}}

	_, ok, err := availability.ResolveDay(hours, day(2025, 3, 11), time.UTC)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveDayUsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	hours := storagetest.WeekHours("09:00", "17:00")

	// 02:00 UTC on Tuesday is still Monday evening at UTC-5.
	window, ok, err := availability.ResolveDay(hours, time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC), loc)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Monday, window.Start.Weekday())
	assert.Equal(t, 9, window.Start.Hour())
}

func TestResolveDayRejectsInvertedHours(t *testing.T) {
	hours := domain.OpeningHours{"monday": {Open: "17:00", Close: "09:00"}}

	_, _, err := availability.ResolveDay(hours, day(2025, 3, 10), time.UTC)
	assert.True(t, errors.Is(err, domain.ErrInvalidInterval))
}

func TestValidateOpeningHours(t *testing.T) {
	cases := []struct {
		name  string
		hours domain.OpeningHours
		err   error
	}{
		{"valid week", storagetest.WeekHours("08:30", "18:00"), nil},
		{"closed ignores times", domain.OpeningHours{"sunday": {Closed: true, Open: "bogus"}}, nil},
		{"unknown weekday", domain.OpeningHours{"funday": {Open: "09:00", Close: "17:00"}}, domain.ErrInvalidInput},
		{"malformed time", domain.OpeningHours{"monday": {Open: "9am", Close: "17:00"}}, domain.ErrInvalidInterval},
		{"empty close", domain.OpeningHours{"monday": {Open: "09:00"}}, domain.ErrInvalidInterval},
		{"close equals open", domain.OpeningHours{"monday": {Open: "09:00", Close: "09:00"}}, domain.ErrInvalidInterval},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := availability.ValidateOpeningHours(tc.hours)
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}
}

func TestParseClock(t *testing.T) {
	d, err := availability.ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+30*time.Minute, d)

	_, err = availability.ParseClock("25:00")
	assert.Error(t, err)
}
