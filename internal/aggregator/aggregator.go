// Package aggregator keeps the in-memory visit index and answers every
// total, unique, range and grouped query against it.
package aggregator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"visitstats/internal/domain"
)

// Aggregator is the sparse hour-bucketed visit index plus running totals.
//
// buckets is the source of truth; total and clients are maintained alongside
// each Record so that all-time queries do not walk the index.
type Aggregator struct {
	mu  sync.RWMutex
	loc *time.Location

	buckets map[HourKey]map[string]int64
	total   int64
	clients map[string]int64
}

// New creates an empty aggregator that keys timestamps in loc
func New(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{
		loc:     loc,
		buckets: make(map[HourKey]map[string]int64),
		clients: make(map[string]int64),
	}
}

// Location returns the zone used for bucketing
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Record counts one visit from clientID at t
func (a *Aggregator) Record(t time.Time, clientID string) error {
	if clientID == "" {
		return domain.ErrEmptyClientID
	}
	local := t.In(a.loc)
	if local.Year() < minYear || local.Year() > maxYear {
		return fmt.Errorf("%w: year %d", domain.ErrInvalidTime, local.Year())
	}
	k := keyOf(local)

	a.mu.Lock()
	defer a.mu.Unlock()

	cell, ok := a.buckets[k]
	if !ok {
		cell = make(map[string]int64, 1)
		a.buckets[k] = cell
	}
	cell[clientID]++
	a.clients[clientID]++
	a.total++
	return nil
}

// Buckets returns the number of non-empty hour buckets
func (a *Aggregator) Buckets() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.buckets)
}

// Total returns the number of visits in scope
func (a *Aggregator) Total(scope domain.Scope) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scopeTotal(scope)
}

// Unique returns the number of distinct clients in scope
func (a *Aggregator) Unique(scope domain.Scope) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scopeUnique(scope)
}

// Summary returns every scope around date under one read lock
func (a *Aggregator) Summary(date time.Time) domain.ScopeStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return domain.ScopeStats{
		Date:        date,
		DayTotal:    a.scopeTotal(domain.DayScope(date)),
		MonthTotal:  a.scopeTotal(domain.MonthScope(date)),
		YearTotal:   a.scopeTotal(domain.YearScope(date)),
		Total:       a.total,
		DayUnique:   a.scopeUnique(domain.DayScope(date)),
		MonthUnique: a.scopeUnique(domain.MonthScope(date)),
		YearUnique:  a.scopeUnique(domain.YearScope(date)),
		TotalUnique: int64(len(a.clients)),
	}
}

// RangeTotal returns the visits in the closed hour range [start, end]
func (a *Aggregator) RangeTotal(start, end time.Time) int64 {
	return a.Range(start, end).Total
}

// RangeUnique returns the distinct clients in the closed hour range [start, end]
func (a *Aggregator) RangeUnique(start, end time.Time) int64 {
	return a.Range(start, end).Unique
}

// Range returns total and unique for [start, end] in one pass. Both ends
// are truncated to the hour and included; end before start yields zeros.
func (a *Aggregator) Range(start, end time.Time) domain.RangeStats {
	stats := domain.RangeStats{Start: start, End: end}
	if end.Before(start) {
		return stats
	}
	lo, hi := a.bounds(start, end)

	a.mu.RLock()
	defer a.mu.RUnlock()
	stats.Total, stats.Unique = a.count(lo, hi)
	return stats
}

// Grouped breaks [start, end] down into buckets of width res, ascending,
// omitting empty buckets.
func (a *Aggregator) Grouped(start, end time.Time, res domain.Resolution) ([]domain.BucketStat, error) {
	if !res.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidResolution, string(res))
	}
	if end.Before(start) {
		return []domain.BucketStat{}, nil
	}
	lo, hi := a.bounds(start, end)

	a.mu.RLock()
	groups := make(map[HourKey]*tally)
	a.eachCell(lo, hi, func(k HourKey, cell map[string]int64) {
		g := k.truncate(res)
		t, ok := groups[g]
		if !ok {
			t = newTally()
			groups[g] = t
		}
		t.add(cell)
	})
	a.mu.RUnlock()

	keys := make([]HourKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	stats := make([]domain.BucketStat, 0, len(keys))
	for _, k := range keys {
		t := groups[k]
		stats = append(stats, domain.BucketStat{
			Bucket:     k.Time(a.loc),
			Resolution: res,
			Total:      t.total,
			Unique:     int64(len(t.clients)),
		})
	}
	return stats, nil
}

var weekdayOrder = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// WeekdayBreakdown groups [start, end] by day of week, Monday first,
// listing only weekdays that saw a visit.
func (a *Aggregator) WeekdayBreakdown(start, end time.Time) []domain.WeekdayStat {
	stats := make([]domain.WeekdayStat, 0, len(weekdayOrder))
	if end.Before(start) {
		return stats
	}
	lo, hi := a.bounds(start, end)

	var days [7]*tally
	a.mu.RLock()
	a.eachCell(lo, hi, func(k HourKey, cell map[string]int64) {
		wd := k.Weekday()
		if days[wd] == nil {
			days[wd] = newTally()
		}
		days[wd].add(cell)
	})
	a.mu.RUnlock()

	for _, wd := range weekdayOrder {
		t := days[wd]
		if t == nil {
			continue
		}
		stats = append(stats, domain.WeekdayStat{
			Weekday: wd.String(),
			Total:   t.total,
			Unique:  int64(len(t.clients)),
		})
	}
	return stats
}

func (a *Aggregator) bounds(start, end time.Time) (HourKey, HourKey) {
	return keyOf(start.In(a.loc)), keyOf(end.In(a.loc))
}

// scopeBounds returns the first and last hour of a calendar scope
func (a *Aggregator) scopeBounds(scope domain.Scope) (HourKey, HourKey) {
	d := scope.Date.In(a.loc)
	y, m := d.Year(), d.Month()
	switch scope.Kind {
	case domain.ScopeDay:
		return makeKey(y, m, d.Day(), 0), makeKey(y, m, d.Day(), 23)
	case domain.ScopeMonth:
		return makeKey(y, m, 1, 0), makeKey(y, m, daysIn(y, m), 23)
	default:
		return makeKey(y, time.January, 1, 0), makeKey(y, time.December, 31, 23)
	}
}

func (a *Aggregator) scopeTotal(scope domain.Scope) int64 {
	if scope.Kind == domain.ScopeAll {
		return a.total
	}
	lo, hi := a.scopeBounds(scope)
	var total int64
	a.eachCell(lo, hi, func(_ HourKey, cell map[string]int64) {
		for _, n := range cell {
			total += n
		}
	})
	return total
}

func (a *Aggregator) scopeUnique(scope domain.Scope) int64 {
	if scope.Kind == domain.ScopeAll {
		return int64(len(a.clients))
	}
	lo, hi := a.scopeBounds(scope)
	_, unique := a.count(lo, hi)
	return unique
}

func (a *Aggregator) count(lo, hi HourKey) (int64, int64) {
	t := newTally()
	a.eachCell(lo, hi, func(_ HourKey, cell map[string]int64) {
		t.add(cell)
	})
	return t.total, int64(len(t.clients))
}

// tally accumulates visit counts and the client set across cells
type tally struct {
	total   int64
	clients map[string]struct{}
}

func newTally() *tally {
	return &tally{clients: make(map[string]struct{})}
}

func (t *tally) add(cell map[string]int64) {
	for client, n := range cell {
		t.total += n
		t.clients[client] = struct{}{}
	}
}
