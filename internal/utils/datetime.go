package utils

import "time"

const (
	DateLayout        = "2006-01-02"
	ClockLayout       = "15:04"
	ClockLayoutSecond = "15:04:05"
)

// ParseDate parses a calendar day in YYYY-MM-DD form.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

func ValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// ValidClock accepts HH:MM and HH:MM:SS.
func ValidClock(s string) bool {
	if _, err := time.Parse(ClockLayout, s); err == nil {
		return true
	}
	_, err := time.Parse(ClockLayoutSecond, s)
	return err == nil
}
