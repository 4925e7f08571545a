package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"visitstats/internal/aggregator"
	"visitstats/internal/domain"
	"visitstats/internal/metrics"
	"visitstats/internal/repository"
	apperrors "visitstats/pkg/errors"
	"visitstats/pkg/logger"
)

// VisitorOptions tunes persistence of the visitor service
type VisitorOptions struct {
	// SaveInterval of zero saves after every visit; otherwise visits are
	// flushed on this interval and on Stop.
	SaveInterval time.Duration

	Location *time.Location
	Metrics  metrics.Sink
	Clock    func() time.Time
}

// visitorService keeps the visit index in memory and snapshots it to a VisitStore
type visitorService struct {
	agg     *aggregator.Aggregator
	store   repository.VisitStore
	metrics metrics.Sink
	logger  *logger.Logger
	now     func() time.Time

	saveInterval time.Duration

	// writeMu serialises record-then-persist so snapshots never interleave
	writeMu sync.Mutex
	dirty   bool

	mu             sync.Mutex
	isRunning      bool
	snapshotTicker *time.Ticker
	stopSnapshot   chan struct{}
	routineDone    chan struct{}
}

// NewVisitorService creates a new visitor service
func NewVisitorService(store repository.VisitStore, log *logger.Logger, opts VisitorOptions) VisitorService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoopSink()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &visitorService{
		agg:          aggregator.New(opts.Location),
		store:        store,
		metrics:      opts.Metrics,
		logger:       log.Named("visitor"),
		now:          opts.Clock,
		saveInterval: opts.SaveInterval,
	}
}

// Start restores the last snapshot and begins periodic snapshots
func (s *visitorService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	s.logger.Info("Starting visitor service...")

	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load visit snapshot: %w", err)
	}

	s.writeMu.Lock()
	err = s.agg.Restore(snapshot)
	s.dirty = false
	s.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to restore visit snapshot: %w", err)
	}

	if snapshot == nil {
		s.logger.Info("No visit snapshot found, starting with empty counters")
	} else {
		s.logger.WithFields(map[string]interface{}{
			"total":    snapshot.Total,
			"buckets":  len(snapshot.Buckets),
			"saved_at": snapshot.SavedAt,
		}).Info("Restored visit snapshot")
	}

	if s.saveInterval > 0 {
		s.snapshotTicker = time.NewTicker(s.saveInterval)
		s.stopSnapshot = make(chan struct{})
		s.routineDone = make(chan struct{})
		go s.snapshotRoutine(context.WithoutCancel(ctx), s.snapshotTicker, s.stopSnapshot, s.routineDone)
	}

	s.isRunning = true
	s.logger.WithField("save_interval", s.saveInterval.String()).Info("Visitor service started successfully")
	return nil
}

// Stop gracefully shuts down the visitor service
func (s *visitorService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.logger.Info("Stopping visitor service...")

	if s.snapshotTicker != nil {
		s.snapshotTicker.Stop()
		close(s.stopSnapshot)
		<-s.routineDone
		s.snapshotTicker = nil
	}

	s.isRunning = false

	if err := s.Flush(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to save final snapshot during shutdown")
		return err
	}

	s.logger.Info("Visitor service stopped")
	return nil
}

// RecordVisit counts one visit at the given time
func (s *visitorService) RecordVisit(ctx context.Context, at time.Time, clientID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.agg.Record(at, clientID); err != nil {
		s.metrics.VisitRejected()
		return apperrors.From(err)
	}
	s.metrics.VisitRecorded()
	s.dirty = true

	if s.saveInterval > 0 {
		return nil
	}
	return s.saveLocked(ctx)
}

// Flush writes the index if anything changed since the last save
func (s *visitorService) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.dirty {
		return nil
	}
	return s.saveLocked(ctx)
}

// saveLocked persists a snapshot; the caller holds writeMu. On failure the
// index keeps its visits and stays dirty so the next save retries them.
func (s *visitorService) saveLocked(ctx context.Context) error {
	snapshot := s.agg.Snapshot()
	snapshot.SavedAt = s.now().UTC()

	start := time.Now()
	err := s.store.Save(ctx, snapshot)
	s.metrics.SaveCompleted(time.Since(start), len(snapshot.Buckets), err)

	if err != nil {
		s.logger.WithError(err).WithField("total", snapshot.Total).Error("Failed to save visit snapshot")
		if !apperrors.IsStorage(err) {
			err = apperrors.NewStorageError("failed to save visit snapshot", err)
		}
		return err
	}

	s.dirty = false
	s.logger.WithFields(map[string]interface{}{
		"total":   snapshot.Total,
		"buckets": len(snapshot.Buckets),
	}).Debug("Saved visit snapshot")
	return nil
}

// snapshotRoutine flushes on every tick until stopped
func (s *visitorService) snapshotRoutine(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.WithError(err).Error("Failed to save periodic snapshot")
			}
		case <-stop:
			s.logger.Debug("Snapshot routine stopped")
			return
		}
	}
}

func (s *visitorService) Summary(date time.Time) domain.ScopeStats {
	s.metrics.QueryServed(metrics.QuerySummary)
	return s.agg.Summary(date)
}

func (s *visitorService) Total(scope domain.Scope) int64 {
	s.metrics.QueryServed(metrics.QuerySummary)
	return s.agg.Total(scope)
}

func (s *visitorService) Unique(scope domain.Scope) int64 {
	s.metrics.QueryServed(metrics.QuerySummary)
	return s.agg.Unique(scope)
}

func (s *visitorService) RangeTotal(start, end time.Time) int64 {
	s.metrics.QueryServed(metrics.QueryRange)
	return s.agg.RangeTotal(start, end)
}

func (s *visitorService) RangeUnique(start, end time.Time) int64 {
	s.metrics.QueryServed(metrics.QueryRange)
	return s.agg.RangeUnique(start, end)
}

func (s *visitorService) Range(start, end time.Time) domain.RangeStats {
	s.metrics.QueryServed(metrics.QueryRange)
	return s.agg.Range(start, end)
}

func (s *visitorService) Grouped(start, end time.Time, resolution domain.Resolution) ([]domain.BucketStat, error) {
	s.metrics.QueryServed(metrics.QueryGrouped)
	stats, err := s.agg.Grouped(start, end, resolution)
	if errors.Is(err, domain.ErrInvalidResolution) {
		return nil, apperrors.NewInvalidResolutionError(string(resolution))
	}
	return stats, err
}

func (s *visitorService) WeekdayBreakdown(start, end time.Time) []domain.WeekdayStat {
	s.metrics.QueryServed(metrics.QueryWeekdays)
	return s.agg.WeekdayBreakdown(start, end)
}

func (s *visitorService) Location() *time.Location {
	return s.agg.Location()
}
