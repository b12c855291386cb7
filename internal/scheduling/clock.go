package scheduling

import (
	"fmt"
	"time"
)

// Clock times travel as "HH:MM" strings. Stored that way too, since the
// lexicographic order of zero-padded HH:MM equals chronological order.

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &h, &m); err != nil || len(s) != 5 || s[2] != ':' {
		return 0, Invalid("invalid time %q, want HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, Invalid("invalid time %q, want HH:MM", s)
	}
	return h*60 + m, nil
}

// FormatClock converts minutes since midnight back to "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate converts "YYYY-MM-DD" to a UTC-midnight time.Time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, Invalid("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

// DateOnly truncates t to a UTC midnight date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
