package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarDay(t *testing.T) {
	buenosAires, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)

	// 01:30 UTC on the 1st is still the 31st in Buenos Aires (UTC-3)
	instant := time.Date(2024, 6, 1, 1, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		loc  *time.Location
		want time.Time
	}{
		{name: "utc", loc: time.UTC, want: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{name: "nil defaults to utc", loc: nil, want: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{name: "behind utc", loc: buenosAires, want: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(CalendarDay(instant, tt.loc)))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	due := time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(due, due))
	assert.Equal(t, 1, DaysBetween(due, time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, DaysBetween(due, time.Date(2024, 7, 16, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysBetween(due, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))

	// a scanned DATE with a non utc zone still counts civil days
	zoned := time.Date(2024, 6, 18, 0, 0, 0, 0, time.FixedZone("", -3*3600))
	assert.Equal(t, 2, DaysBetween(due, zoned))
}

func TestAddDays(t *testing.T) {
	issue := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	assert.True(t, time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC).Equal(AddDays(issue, 15)))
}

func TestBillingPeriod(t *testing.T) {
	p, err := ParseBillingPeriod("2024-06")
	require.NoError(t, err)
	assert.Equal(t, "2024-06", p.String())
	assert.Equal(t, BillingPeriod("2024-12"), BillingPeriodOf(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))

	for _, bad := range []string{"", "2024-13", "2024/06", "June 2024"} {
		_, err := ParseBillingPeriod(bad)
		assert.Error(t, err, bad)
	}
}
