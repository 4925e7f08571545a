package aggregator

import (
	"time"

	"visitstats/internal/domain"
)

const (
	yearStride  = 1000000
	monthStride = 10000
	dayStride   = 100

	// Years a key can hold without overflowing and that render as four digits.
	minYear = 0
	maxYear = 9999
)

// HourKey packs (year, month, day, hour) into one integer whose natural
// order is chronological order.
type HourKey int64

func makeKey(year int, month time.Month, day, hour int) HourKey {
	return HourKey(((int64(year)*100+int64(month))*100+int64(day))*100 + int64(hour))
}

func keyOf(t time.Time) HourKey {
	return makeKey(t.Year(), t.Month(), t.Day(), t.Hour())
}

// split unpacks the key. Floor division keeps years before 0 intact.
func (k HourKey) split() (year int, month time.Month, day, hour int) {
	y := int64(k) / yearStride
	rem := int64(k) % yearStride
	if rem < 0 {
		y--
		rem += yearStride
	}
	return int(y), time.Month(rem / monthStride), int(rem / dayStride % 100), int(rem % 100)
}

// Time returns the start of the hour in loc
func (k HourKey) Time(loc *time.Location) time.Time {
	y, m, d, h := k.split()
	return time.Date(y, m, d, h, 0, 0, 0, loc)
}

// Weekday is computed from the calendar date alone
func (k HourKey) Weekday() time.Weekday {
	y, m, d, _ := k.split()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Weekday()
}

// truncate maps the key onto the first hour of its bucket at res
func (k HourKey) truncate(res domain.Resolution) HourKey {
	y, m, d, h := k.split()
	switch res {
	case domain.ResolutionDay:
		h = 0
	case domain.ResolutionMonth:
		d, h = 1, 0
	case domain.ResolutionYear:
		m, d, h = time.January, 1, 0
	}
	return makeKey(y, m, d, h)
}

// hoursBetween counts the hour slots in [lo, hi] on a wall clock without DST
func hoursBetween(lo, hi HourKey) int64 {
	if hi < lo {
		return 0
	}
	return int64(hi.Time(time.UTC).Sub(lo.Time(time.UTC))/time.Hour) + 1
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func validKey(year int, month time.Month, day, hour int) bool {
	if year < minYear || year > maxYear {
		return false
	}
	if month < time.January || month > time.December {
		return false
	}
	if day < 1 || day > daysIn(year, month) {
		return false
	}
	return hour >= 0 && hour <= 23
}
