package credential

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysUntil(t *testing.T) {
	today := date(2025, time.June, 1)

	assert.Equal(t, 0, DaysUntil(today, today))
	assert.Equal(t, 30, DaysUntil(date(2025, time.July, 1), today))
	assert.Equal(t, -10, DaysUntil(date(2025, time.May, 22), today))

	// Time-of-day must not affect the whole-day count.
	lateTonight := time.Date(2025, time.June, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysUntil(date(2025, time.June, 2), lateTonight))
}

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2025-12-31")
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.December, 31), parsed)

	_, err = ParseDate("12/31/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ParseDate("not-a-date")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestSeverityFor(t *testing.T) {
	cases := []struct {
		days int
		want Severity
	}{
		{90, SeverityInfo},
		{60, SeverityInfo},
		{59, SeverityWarning},
		{30, SeverityWarning},
		{7, SeverityWarning},
		{6, SeverityWarning},
		{1, SeverityCritical},
		{0, SeverityCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SeverityFor(tc.days), "daysBeforeExpiry=%d", tc.days)
	}
}

func TestLeadTimeFor(t *testing.T) {
	cases := []struct {
		daysUntil int
		wantLead  int
		wantOK    bool
	}{
		{91, 0, false},
		{90, 90, true},
		{61, 90, true},
		{60, 60, true},
		{31, 60, true},
		{30, 30, true},
		{8, 30, true},
		{7, 7, true},
		{2, 7, true},
		{1, 1, true},
		{0, 1, true},
		{-1, 0, false},
	}
	for _, tc := range cases {
		lead, ok := LeadTimeFor(tc.daysUntil)
		assert.Equal(t, tc.wantOK, ok, "daysUntil=%d", tc.daysUntil)
		assert.Equal(t, tc.wantLead, lead, "daysUntil=%d", tc.daysUntil)
	}
}
