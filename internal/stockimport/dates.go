package stockimport

import (
	"strconv"
	"strings"
	"time"
)

// canonicalDateLayout is the ISO calendar form dates are rendered back into.
const canonicalDateLayout = "2006-01-02"

// ParseDate reads a free-text date as a timezone-less calendar date. It tries
// year-first with a 4-digit year, then day-first with a 4-digit year, then
// day-first with a 2-digit year (values above 50 fall in the 1900s). The
// separators "-", "/" and "." are accepted interchangeably. The constructed
// date is round-tripped so that overflow like day 31 in a 30-day month is
// rejected rather than silently normalized.
func ParseDate(raw string) (time.Time, error) {
	parts := splitDate(strings.TrimSpace(raw))
	if parts == nil {
		return time.Time{}, ErrNotADate
	}

	var year, month, day int
	switch {
	case len(parts[0]) == 4:
		year, month, day = parts.ints(0, 1, 2)
	case len(parts[2]) == 4:
		day, month, year = parts.ints(0, 1, 2)
	case len(parts[2]) == 2:
		day, month, year = parts.ints(0, 1, 2)
		if year > 50 {
			year += 1900
		} else {
			year += 2000
		}
	default:
		return time.Time{}, ErrNotADate
	}

	if year == 0 || month == 0 || day == 0 {
		return time.Time{}, ErrNotADate
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, ErrNotADate
	}
	return date, nil
}

// CanonicalDate renders a parsed date back into its ISO form.
func CanonicalDate(t time.Time) string {
	return t.Format(canonicalDateLayout)
}

type dateParts []string

func (p dateParts) ints(a, b, c int) (int, int, int) {
	x, _ := strconv.Atoi(p[a])
	y, _ := strconv.Atoi(p[b])
	z, _ := strconv.Atoi(p[c])
	return x, y, z
}

func splitDate(raw string) dateParts {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '-' || r == '/' || r == '.'
	})
	if len(parts) != 3 {
		return nil
	}
	for _, part := range parts {
		if part == "" {
			return nil
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return nil
			}
		}
	}
	return dateParts(parts)
}
