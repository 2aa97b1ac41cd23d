package credential

import (
	"errors"
	"time"
)

// Severity grades a notification by how soon the credential expires.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ErrInvalidDate is returned when an expiration date string cannot be parsed.
var ErrInvalidDate = errors.New("invalid expiration date")

// AlertLeadTimes is the fixed descending set of days-before-expiration at which
// a notification fires. Each credential produces at most one notification per
// lead time over its lifetime.
var AlertLeadTimes = []int{90, 60, 30, 7, 1}

const dateLayout = "2006-01-02"

// ParseDate parses an ISO date string (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// DaysUntil returns the number of whole days from today until expiration.
// Negative when the expiration date has already passed. Both arguments are
// truncated to their date component before comparison.
func DaysUntil(expiration, today time.Time) int {
	e := time.Date(expiration.Year(), expiration.Month(), expiration.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(t).Hours() / 24)
}

// LeadTimeFor returns the lead time whose alert window daysUntil currently
// falls in: the smallest configured lead time that is >= daysUntil. A
// credential 31 days out is inside the 60-day window but past the 30-day one,
// so only the 60-day notification fires; the 30/7/1-day notifications follow
// as the scan reruns on later days. The second result is false when daysUntil
// is negative (already expired) or beyond the largest lead time.
func LeadTimeFor(daysUntil int) (int, bool) {
	if daysUntil < 0 {
		return 0, false
	}
	for i := len(AlertLeadTimes) - 1; i >= 0; i-- {
		if daysUntil <= AlertLeadTimes[i] {
			return AlertLeadTimes[i], true
		}
	}
	return 0, false
}

// SeverityFor maps a days-before-expiry lead time to a severity tier:
// info at 60 days or more out, critical at 1 day or less, warning in between.
func SeverityFor(daysBeforeExpiry int) Severity {
	switch {
	case daysBeforeExpiry >= 60:
		return SeverityInfo
	case daysBeforeExpiry <= 1:
		return SeverityCritical
	default:
		return SeverityWarning
	}
}
