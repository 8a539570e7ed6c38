package util

import (
    "strconv"
    "time"
)

// DayLayout is the wire format for calendar days.
const DayLayout = "2006-01-02"

// StartOfDay truncates t to midnight UTC of its calendar day.
func StartOfDay(t time.Time) time.Time {
    y, m, d := t.UTC().Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into midnight UTC.
func ParseDay(s string) (time.Time, error) {
    t, err := time.Parse(DayLayout, s)
    if err != nil {
        return time.Time{}, err
    }
    return t.UTC(), nil
}

// FormatDay renders t as YYYY-MM-DD in UTC.
func FormatDay(t time.Time) string {
    return t.UTC().Format(DayLayout)
}

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
    return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}

// AddDays shifts a day by n calendar days.
func AddDays(t time.Time, n int) time.Time {
    return StartOfDay(t).AddDate(0, 0, n)
}

// ParseTime tries YYYY-MM-DD, RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := ParseDay(s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0).UTC(), true
    }
    return time.Time{}, false
}
