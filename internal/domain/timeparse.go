package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	layoutDay  = "2006-01-02"
	layoutHour = "2006-01-02T15"
)

// ParseTimeBound reads a query bound in loc. It accepts a date, a date with
// hour ("2006-01-02T15") or RFC 3339. A bare date used as an upper bound
// covers the whole day, so it resolves to the last hour of that day.
func ParseTimeBound(value string, loc *time.Location, upper bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.ParseInLocation(layoutDay, value, loc); err == nil {
		if upper {
			return time.Date(t.Year(), t.Month(), t.Day(), 23, 0, 0, 0, loc), nil
		}
		return t, nil
	}
	if t, err := time.ParseInLocation(layoutHour, value, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD, YYYY-MM-DDTHH or RFC 3339)", ErrInvalidTime, value)
}
