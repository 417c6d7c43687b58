package service

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// WeeklySlot is a fixed weekday and wall-clock time in one location.
type WeeklySlot struct {
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Location *time.Location
}

func NewWeeklySlot(weekday, timeOfDay, timezone string) (WeeklySlot, error) {
	day, err := ParseWeekday(weekday)
	if err != nil {
		return WeeklySlot{}, err
	}
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return WeeklySlot{}, err
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return WeeklySlot{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return WeeklySlot{Weekday: day, Hour: hour, Minute: minute, Location: loc}, nil
}

func ParseWeekday(name string) (time.Weekday, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if normalized == full || (len(normalized) >= 3 && strings.HasPrefix(full, normalized)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid day of week %q", name)
}

func ParseTimeOfDay(value string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q", value)
	}
	return t.Hour(), t.Minute(), nil
}

// on returns the slot time on the calendar day of t, shifted forward to the slot weekday.
func (w WeeklySlot) on(t time.Time) time.Time {
	local := t.In(w.Location)
	days := (int(w.Weekday) - int(local.Weekday()) + 7) % 7
	return time.Date(local.Year(), local.Month(), local.Day()+days, w.Hour, w.Minute, 0, 0, w.Location)
}

// NextAfter returns the first occurrence strictly after t.
func (w WeeklySlot) NextAfter(t time.Time) time.Time {
	candidate := w.on(t)
	if !candidate.After(t) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// FirstOnOrAfter returns the occurrence on the calendar day of date or the
// first matching weekday after it, regardless of the time of day of date.
func (w WeeklySlot) FirstOnOrAfter(date time.Time) time.Time {
	return w.on(date)
}

// NextFree walks forward week by week from the first slot after now until it
// finds a calendar day not already used by one of taken.
func (w WeeklySlot) NextFree(now time.Time, taken []time.Time) time.Time {
	occupied := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		occupied[w.dayKey(t)] = struct{}{}
	}

	slot := w.NextAfter(now)
	for {
		if _, ok := occupied[w.dayKey(slot)]; !ok {
			return slot
		}
		slot = slot.AddDate(0, 0, 7)
	}
}

func (w WeeklySlot) dayKey(t time.Time) string {
	return t.In(w.Location).Format("2006-01-02")
}
