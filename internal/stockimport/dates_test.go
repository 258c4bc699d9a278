package stockimport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDateAcceptedForms(t *testing.T) {
	cases := map[string]string{
		"2025-09-30":   "2025-09-30",
		"2025/09/30":   "2025-09-30",
		"2025.09.30":   "2025-09-30",
		"30-09-2025":   "2025-09-30",
		"30/09/2025":   "2025-09-30",
		"30.09.2025":   "2025-09-30",
		"30-09-25":     "2025-09-30",
		"5/3/25":       "2025-03-05",
		"01-01-99":     "1999-01-01",
		"01-01-51":     "1951-01-01",
		"01-01-50":     "2050-01-01",
		" 2026-02-28 ": "2026-02-28",
	}
	for input, want := range cases {
		parsed, err := ParseDate(input)
		require.NoError(t, err, "input %q", input)
		require.Equal(t, want, CanonicalDate(parsed), "input %q", input)
	}
}

func TestParseDateRejectsInvalid(t *testing.T) {
	inputs := []string{
		"",
		"not a date",
		"31-02-2025",
		"2025-02-31",
		"2025-13-01",
		"00-01-2025",
		"30-09",
		"30-09-2025-01",
		"2025-09-3a",
		"30 09 2025",
	}
	for _, input := range inputs {
		_, err := ParseDate(input)
		require.ErrorIs(t, err, ErrNotADate, "input %q", input)
	}
}

func TestParseDateRoundTrip(t *testing.T) {
	inputs := []string{"2025-09-30", "28/02/2023", "1-1-24", "15.06.1987"}
	for _, input := range inputs {
		first, err := ParseDate(input)
		require.NoError(t, err)
		second, err := ParseDate(CanonicalDate(first))
		require.NoError(t, err)
		require.True(t, first.Equal(second), "input %q", input)
	}
}

func TestParseDateIsCalendarOnly(t *testing.T) {
	parsed, err := ParseDate("30-09-2025")
	require.NoError(t, err)
	require.Equal(t, time.UTC, parsed.Location())
	require.Zero(t, parsed.Hour())
}
