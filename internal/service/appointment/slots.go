package appointment

import (
	"fmt"
	"strings"
	"time"
)

const (
	slotLayout = "15:04"
	dateLayout = "2006-01-02"
)

// zone-less layouts accepted for appointment_date, interpreted in the clinic
// time zone.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// SlotWindow describes bookable clinic hours. End is exclusive.
type SlotWindow struct {
	Start    time.Duration // offset from midnight
	End      time.Duration
	Interval time.Duration
}

// DefaultSlotWindow is 09:00 to 17:00, hourly.
var DefaultSlotWindow = SlotWindow{Start: 9 * time.Hour, End: 17 * time.Hour, Interval: time.Hour}

// ParseSlotWindow builds a window from "HH:MM" bounds.
func ParseSlotWindow(start, end string, interval time.Duration) (SlotWindow, error) {
	s, err := parseClock(start)
	if err != nil {
		return SlotWindow{}, fmt.Errorf("invalid day start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return SlotWindow{}, fmt.Errorf("invalid day end: %w", err)
	}
	if interval <= 0 {
		return SlotWindow{}, fmt.Errorf("slot interval must be positive")
	}
	if e <= s {
		return SlotWindow{}, fmt.Errorf("day end %s must be after day start %s", end, start)
	}
	if e-s < interval {
		return SlotWindow{}, fmt.Errorf("window %s-%s is shorter than one %s slot", start, end, interval)
	}
	return SlotWindow{Start: s, End: e, Interval: interval}, nil
}

func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse(slotLayout, strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Candidates lists every slot start as HH:MM, ascending. A slot must end by
// the window's close.
func (w SlotWindow) Candidates() []string {
	slots := []string{}
	for off := w.Start; off+w.Interval <= w.End; off += w.Interval {
		slots = append(slots, formatClock(off))
	}
	return slots
}

func formatClock(off time.Duration) string {
	h := int(off / time.Hour)
	m := int((off % time.Hour) / time.Minute)
	return fmt.Sprintf("%02d:%02d", h, m)
}

// freeSlots removes booked times of day from the window's candidates. Booked
// times are compared as HH:MM in loc, so an appointment at 10:30 does not
// block a 10:00 slot.
func freeSlots(w SlotWindow, booked []time.Time, loc *time.Location) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		t := b.In(loc)
		if t.Second() != 0 || t.Nanosecond() != 0 {
			continue
		}
		taken[t.Format(slotLayout)] = struct{}{}
	}

	free := []string{}
	for _, slot := range w.Candidates() {
		if _, ok := taken[slot]; !ok {
			free = append(free, slot)
		}
	}
	return free
}

// ParseAppointmentDate accepts RFC 3339 timestamps (a trailing Z included) and
// zone-less ISO 8601 date-times, which are read in loc. Results are truncated
// to microseconds, the precision of a Postgres timestamptz.
func ParseAppointmentDate(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC().Truncate(time.Microsecond), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t.UTC().Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as ISO 8601 date-time", v)
}

// ParseDay parses YYYY-MM-DD as the start of that calendar day in loc.
func ParseDay(v string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(v), loc)
}
