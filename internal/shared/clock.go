package shared

import "time"

// Clock supplies the current instant and calendar date.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Today returns midnight UTC of the current date.
func (c SystemClock) Today() time.Time {
	return DateOf(c.Now())
}

// FixedClock always reports the same instant. Used by tests and replays.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.At.UTC()
}

// Today returns midnight UTC of the fixed instant's date.
func (c FixedClock) Today() time.Time {
	return DateOf(c.At.UTC())
}

// DateLayout is the calendar date format used for stored dates.
const DateLayout = "2006-01-02"

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date at midnight UTC.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}
