package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidResolution is returned when a grouping resolution is not one of hour, day, month or year
	ErrInvalidResolution = errors.New("invalid resolution")

	// ErrCorruptSnapshot is returned when persisted state cannot be turned back into an index
	ErrCorruptSnapshot = errors.New("corrupt visit snapshot")

	// ErrEmptyClientID is returned when a visit carries no client identifier
	ErrEmptyClientID = errors.New("client id must not be empty")

	// ErrInvalidTime is returned when a query bound is not a recognized time format
	ErrInvalidTime = errors.New("invalid time")
)

// VisitEvent is a single recorded request
type VisitEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ClientID  string    `json:"client_id"`
}

// ScopeKind selects the calendar window of a total/unique query
type ScopeKind int

const (
	ScopeDay ScopeKind = iota
	ScopeMonth
	ScopeYear
	ScopeAll
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeDay:
		return "day"
	case ScopeMonth:
		return "month"
	case ScopeYear:
		return "year"
	case ScopeAll:
		return "all"
	default:
		return fmt.Sprintf("ScopeKind(%d)", int(k))
	}
}

// Scope is a single day, month, year or all time. Date is ignored for ScopeAll.
type Scope struct {
	Kind ScopeKind
	Date time.Time
}

func DayScope(date time.Time) Scope   { return Scope{Kind: ScopeDay, Date: date} }
func MonthScope(date time.Time) Scope { return Scope{Kind: ScopeMonth, Date: date} }
func YearScope(date time.Time) Scope  { return Scope{Kind: ScopeYear, Date: date} }
func AllScope() Scope                 { return Scope{Kind: ScopeAll} }

// Resolution is the bucket width of a grouped query
type Resolution string

const (
	ResolutionHour  Resolution = "hour"
	ResolutionDay   Resolution = "day"
	ResolutionMonth Resolution = "month"
	ResolutionYear  Resolution = "year"
)

// Valid reports whether r is a recognized resolution
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionHour, ResolutionDay, ResolutionMonth, ResolutionYear:
		return true
	}
	return false
}

// ParseResolution converts user input into a Resolution
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	return r, nil
}

// BucketStat is one row of a grouped breakdown
type BucketStat struct {
	Bucket     time.Time  `json:"bucket"`
	Resolution Resolution `json:"resolution"`
	Total      int64      `json:"total"`
	Unique     int64      `json:"unique"`
}

// Label renders the bucket at its own resolution
func (b BucketStat) Label() string {
	switch b.Resolution {
	case ResolutionHour:
		return b.Bucket.Format("2006-01-02 15:00")
	case ResolutionDay:
		return b.Bucket.Format("2006-01-02")
	case ResolutionMonth:
		return b.Bucket.Format("2006-01")
	case ResolutionYear:
		return b.Bucket.Format("2006")
	}
	return b.Bucket.String()
}

// WeekdayStat is one row of a weekday breakdown
type WeekdayStat struct {
	Weekday string `json:"weekday"`
	Total   int64  `json:"total"`
	Unique  int64  `json:"unique"`
}

// RangeStats is the result of a closed range query
type RangeStats struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Total  int64     `json:"total"`
	Unique int64     `json:"unique"`
}

// ScopeStats holds totals and uniques of every scope around one reference date
type ScopeStats struct {
	Date        time.Time `json:"date"`
	DayTotal    int64     `json:"day_total"`
	MonthTotal  int64     `json:"month_total"`
	YearTotal   int64     `json:"year_total"`
	Total       int64     `json:"total"`
	DayUnique   int64     `json:"day_unique"`
	MonthUnique int64     `json:"month_unique"`
	YearUnique  int64     `json:"year_unique"`
	TotalUnique int64     `json:"total_unique"`
}

// SnapshotVersion is the current persisted layout version
const SnapshotVersion = 1

// Snapshot is the persisted form of the visit index
type Snapshot struct {
	Version int              `json:"version"`
	Total   int64            `json:"total"`
	Clients map[string]int64 `json:"clients"`
	Buckets []BucketRecord   `json:"buckets"`
	SavedAt time.Time        `json:"saved_at"`
}

// BucketRecord is one non-empty hour of the index
type BucketRecord struct {
	Year    int              `json:"year"`
	Month   int              `json:"month"`
	Day     int              `json:"day"`
	Hour    int              `json:"hour"`
	Clients map[string]int64 `json:"clients"`
}
