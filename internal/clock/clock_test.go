package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayKeyUsesBusinessTimezone(t *testing.T) {
	cal := NewCalendar(3)

	tests := []struct {
		name string
		utc  time.Time
		want string
	}{
		{
			name: "midday maps to same date",
			utc:  time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
			want: "2025-06-15",
		},
		{
			name: "late UTC evening is already the next local day",
			utc:  time.Date(2025, 6, 15, 21, 30, 0, 0, time.UTC),
			want: "2025-06-16",
		},
		{
			name: "one second before local midnight",
			utc:  time.Date(2025, 6, 15, 20, 59, 59, 0, time.UTC),
			want: "2025-06-15",
		},
		{
			name: "exactly local midnight starts the new day",
			utc:  time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC),
			want: "2025-06-16",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.DayKey(tt.utc))
		})
	}
}

func TestSameLocalDateSharesDayKey(t *testing.T) {
	cal := NewCalendar(3)

	morning := time.Date(2025, 6, 14, 22, 0, 0, 0, time.UTC)  // 01:00 local Jun 15
	evening := time.Date(2025, 6, 15, 20, 30, 0, 0, time.UTC) // 23:30 local Jun 15

	assert.Equal(t, cal.DayKey(morning), cal.DayKey(evening))
}

func TestDayStart(t *testing.T) {
	cal := NewCalendar(3)
	at := time.Date(2025, 6, 15, 12, 34, 56, 0, time.UTC)

	start := cal.DayStart(at)

	assert.Equal(t, "2025-06-15", cal.DayKey(start))
	// Local midnight is 21:00 UTC the previous day.
	assert.True(t, start.Equal(time.Date(2025, 6, 14, 21, 0, 0, 0, time.UTC)))
}

func TestUntilReset(t *testing.T) {
	cal := NewCalendar(3)

	// 23:00 local: one hour to midnight.
	at := time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Hour, cal.UntilReset(at))

	// Reset lands exactly at the next local midnight.
	reset := cal.NextReset(at)
	assert.Equal(t, "2025-06-16", cal.DayKey(reset))
	assert.Equal(t, "2025-06-15", cal.DayKey(reset.Add(-time.Nanosecond)))
}

func TestMonthBoundaryRollsCleanly(t *testing.T) {
	cal := NewCalendar(3)

	// 23:59 local on the last day of the month.
	at := time.Date(2025, 6, 30, 20, 59, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-30", cal.DayKey(at))
	assert.Equal(t, "2025-07-01", cal.DayKey(cal.NextReset(at)))
	assert.Equal(t, time.Minute, cal.UntilReset(at))
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fake := NewFake(start)

	assert.True(t, fake.Now().Equal(start))

	fake.Advance(90 * time.Minute)
	assert.True(t, fake.Now().Equal(start.Add(90*time.Minute)))

	fake.Set(start)
	assert.True(t, fake.Now().Equal(start))
}

func TestNegativeOffset(t *testing.T) {
	cal := NewCalendar(-5)

	// 02:00 UTC is still the previous local day at UTC-5.
	at := time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-14", cal.DayKey(at))
}
