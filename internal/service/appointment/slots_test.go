package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlotWindow(t *testing.T) {
	w, err := ParseSlotWindow("08:30", "11:00", 45*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:30", "09:15", "10:00"}, w.Candidates())

	_, err = ParseSlotWindow("9am", "17:00", time.Hour)
	assert.Error(t, err)
	_, err = ParseSlotWindow("17:00", "09:00", time.Hour)
	assert.Error(t, err)
	_, err = ParseSlotWindow("09:00", "17:00", 0)
	assert.Error(t, err)
	_, err = ParseSlotWindow("09:00", "09:30", time.Hour)
	assert.Error(t, err, "window shorter than one slot")
}

func TestCandidates_SlotsEndByClose(t *testing.T) {
	tests := []struct {
		start, end string
		interval   time.Duration
		want       []string
	}{
		{"14:00", "18:00", 30 * time.Minute, []string{"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30"}},
		{"09:00", "10:00", time.Hour, []string{"09:00"}},
		{"09:00", "10:59", 30 * time.Minute, []string{"09:00", "09:30", "10:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.start+"-"+tt.end, func(t *testing.T) {
			w, err := ParseSlotWindow(tt.start, tt.end, tt.interval)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.Candidates())
		})
	}
}

func TestDefaultSlotWindow(t *testing.T) {
	assert.Equal(t,
		[]string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"},
		DefaultSlotWindow.Candidates())
}

func TestParseAppointmentDate(t *testing.T) {
	cairo, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)

	tests := []struct {
		in   string
		loc  *time.Location
		want time.Time
	}{
		{"2026-03-10T10:00:00Z", time.UTC, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"2026-03-10T12:00:00+02:00", time.UTC, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"2026-03-10T10:00:00.000Z", time.UTC, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"2026-03-10T10:00:00", time.UTC, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"2026-03-10T10:00", time.UTC, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"2026-01-15 10:00", cairo, time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)},
		{"2026-03-10T10:00:00.0000001Z", time.UTC, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)},
		{"2026-03-10T10:00:00.0000019", time.UTC, time.Date(2026, 3, 10, 10, 0, 0, 1000, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAppointmentDate(tt.in, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"", "2026-03-10", "10:00", "2026-13-01T10:00:00Z", "next tuesday"} {
		_, err := ParseAppointmentDate(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}

func TestFreeSlots(t *testing.T) {
	booked := []time.Time{
		time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 12, 0, 30, 0, time.UTC), // seconds never match a slot
	}
	free := freeSlots(DefaultSlotWindow, booked, time.UTC)
	assert.Equal(t, []string{"10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}, free)
}
