package service

import (
	"context"
	"time"

	"visitstats/internal/domain"
)

// VisitorService defines the interface for visit recording and aggregate queries
type VisitorService interface {
	// Start restores persisted state and begins periodic snapshots
	Start(ctx context.Context) error

	// Stop halts periodic snapshots and writes any unsaved visits
	Stop(ctx context.Context) error

	// RecordVisit counts one visit and persists it according to the save policy
	RecordVisit(ctx context.Context, at time.Time, clientID string) error

	// Flush writes the current index if it has unsaved visits
	Flush(ctx context.Context) error

	// Summary returns day, month, year and all-time counts for the given date
	Summary(date time.Time) domain.ScopeStats

	Total(scope domain.Scope) int64
	Unique(scope domain.Scope) int64

	RangeTotal(start, end time.Time) int64
	RangeUnique(start, end time.Time) int64
	Range(start, end time.Time) domain.RangeStats

	// Grouped returns per-bucket counts; unknown resolutions yield a validation error
	Grouped(start, end time.Time, resolution domain.Resolution) ([]domain.BucketStat, error)

	WeekdayBreakdown(start, end time.Time) []domain.WeekdayStat

	// Location is the timezone every calendar boundary is computed in
	Location() *time.Location
}

// Services aggregates all service interfaces
type Services struct {
	Visitor VisitorService
}
