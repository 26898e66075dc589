package models

import (
	"fmt"
	"time"
)

// Weekday names a day of the week for recurring action rules. Offsets are
// Monday=0 .. Sunday=6, matching the scheduler's modulo-7 arithmetic.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

var weekdayOffsets = map[Weekday]int{
	Monday: 0, Tuesday: 1, Wednesday: 2, Thursday: 3,
	Friday: 4, Saturday: 5, Sunday: 6,
}

// Valid reports whether the value is one of the seven weekday names.
func (w Weekday) Valid() bool {
	_, ok := weekdayOffsets[w]
	return ok
}

// Offset returns the number of days from Monday (0..6).
func (w Weekday) Offset() (int, error) {
	off, ok := weekdayOffsets[w]
	if !ok {
		return 0, fmt.Errorf("invalid weekday %q", string(w))
	}
	return off, nil
}

// DaysFromMonday converts a time.Weekday (Sunday=0) to the Monday=0 offset.
func DaysFromMonday(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// TimeOfDay is a wall-clock time "HH:MM:SS" without a date, stored as text.
type TimeOfDay string

// Clock parses the time of day into hour, minute and second.
func (t TimeOfDay) Clock() (hour, min, sec int, err error) {
	parsed, err := time.Parse("15:04:05", string(t))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid time of day %q: %w", string(t), err)
	}
	h, m, s := parsed.Clock()
	return h, m, s, nil
}

// Valid reports whether the value parses as "HH:MM:SS".
func (t TimeOfDay) Valid() bool {
	_, _, _, err := t.Clock()
	return err == nil
}

// SecondsOfDay returns the time of day as seconds since midnight.
func (t TimeOfDay) SecondsOfDay() (int, error) {
	h, m, s, err := t.Clock()
	if err != nil {
		return 0, err
	}
	return h*3600 + m*60 + s, nil
}
