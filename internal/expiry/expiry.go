// Package expiry classifies calendar expiry dates into freshness buckets.
package expiry

import (
	"fmt"
	"time"
)

// DateLayout is the only accepted textual form of an expiry date.
const DateLayout = "2006-01-02"

// DefaultSoonDays is the "soon" window used when none is configured.
const DefaultSoonDays = 3

type Status string

const (
	Unknown Status = "unknown"
	Expired Status = "expired"
	Soon    Status = "soon"
	OK      Status = "ok"
)

// Evaluate buckets expiry relative to the calendar day of today. A nil expiry
// is Unknown. Expiry on today itself is Soon, the day before is Expired.
func Evaluate(expiry *time.Time, soonDays int, today time.Time) Status {
	if expiry == nil {
		return Unknown
	}
	diff := DaysUntil(*expiry, today)
	switch {
	case diff < 0:
		return Expired
	case diff <= soonDays:
		return Soon
	default:
		return OK
	}
}

// EvaluateString parses s with ParseDate and evaluates it. Empty and
// unparseable strings are Unknown.
func EvaluateString(s string, soonDays int, today time.Time) Status {
	d, err := ParseDate(s)
	if err != nil {
		return Unknown
	}
	return Evaluate(d, soonDays, today)
}

// DaysUntil returns the number of whole calendar days from today to expiry.
// Both sides are reduced to their calendar date first, in their own
// location, so time-of-day and DST shifts never change the result.
func DaysUntil(expiry, today time.Time) int {
	return int(dateOf(expiry).Sub(dateOf(today)).Hours() / 24)
}

// ParseDate strictly parses a YYYY-MM-DD date. It returns nil, nil for an
// empty string.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry date %q: %w", s, err)
	}
	return &d, nil
}

// FormatDate renders d as YYYY-MM-DD, or "" for nil.
func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
