package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitstats/internal/domain"
	"visitstats/internal/repository"
	apperrors "visitstats/pkg/errors"
)

// memoryStore is a VisitStore that keeps the last snapshot and can be told to fail
type memoryStore struct {
	mu       sync.Mutex
	snapshot *domain.Snapshot
	saves    int
	loadErr  error
	saveErr  error
}

func (m *memoryStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, m.loadErr
}

func (m *memoryStore) Save(ctx context.Context, s *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snapshot = s
	m.saves++
	return nil
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) failSaves(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

func (m *memoryStore) stats() (*domain.Snapshot, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, m.saves
}

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func startService(t *testing.T, store repository.VisitStore, opts VisitorOptions) VisitorService {
	t.Helper()
	svc := NewVisitorService(store, nil, opts)
	require.NoError(t, svc.Start(context.Background()))
	return svc
}

func TestVisitorService_SavesEveryVisit(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	clock := at(2024, 3, 1, 12, 0)
	svc := startService(t, store, VisitorOptions{Clock: func() time.Time { return clock }})

	require.NoError(t, svc.RecordVisit(ctx, at(2022, 1, 1, 13, 15), "192.168.0.1"))
	require.NoError(t, svc.RecordVisit(ctx, at(2022, 1, 1, 13, 2), "192.168.0.2"))

	snapshot, saves := store.stats()
	assert.Equal(t, 2, saves)
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(2), snapshot.Total)
	assert.True(t, clock.Equal(snapshot.SavedAt))

	stats := svc.Summary(at(2022, 1, 1, 0, 0))
	assert.Equal(t, int64(2), stats.DayTotal)
	assert.Equal(t, int64(2), stats.DayUnique)
}

func TestVisitorService_RestartRestores(t *testing.T) {
	ctx := context.Background()
	store, err := repository.NewFileStore(filepath.Join(t.TempDir(), "visits.json"))
	require.NoError(t, err)

	first := startService(t, store, VisitorOptions{})
	for _, v := range []struct {
		ts     time.Time
		client string
	}{
		{at(2022, 1, 1, 13, 15), "192.168.0.1"},
		{at(2022, 1, 1, 13, 2), "192.168.0.2"},
		{at(2022, 1, 1, 14, 30), "192.168.0.3"},
		{at(2022, 1, 1, 14, 45), "192.168.0.3"},
	} {
		require.NoError(t, first.RecordVisit(ctx, v.ts, v.client))
	}
	require.NoError(t, first.Stop(ctx))

	second := startService(t, store, VisitorOptions{})
	defer second.Stop(ctx)

	assert.Equal(t, int64(4), second.Total(domain.AllScope()))
	assert.Equal(t, int64(3), second.Unique(domain.AllScope()))
	assert.Equal(t, int64(2), second.RangeTotal(at(2022, 1, 1, 14, 0), at(2022, 1, 1, 15, 0)))
	assert.Equal(t, int64(1), second.RangeUnique(at(2022, 1, 1, 14, 0), at(2022, 1, 1, 15, 0)))
}

func TestVisitorService_SaveFailureKeepsVisit(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	svc := startService(t, store, VisitorOptions{})

	store.failSaves(errors.New("disk full"))
	err := svc.RecordVisit(ctx, at(2024, 5, 1, 10, 0), "A")
	require.Error(t, err)
	assert.True(t, apperrors.IsStorage(err))
	assert.Equal(t, int64(1), svc.Total(domain.AllScope()))

	store.failSaves(nil)
	require.NoError(t, svc.Flush(ctx))

	snapshot, saves := store.stats()
	assert.Equal(t, 1, saves)
	assert.Equal(t, int64(1), snapshot.Total)
}

func TestVisitorService_StorageErrorPassthrough(t *testing.T) {
	store := &memoryStore{}
	svc := startService(t, store, VisitorOptions{})

	original := apperrors.NewStorageError("redis unavailable", errors.New("dial tcp"))
	store.failSaves(original)

	err := svc.RecordVisit(context.Background(), at(2024, 5, 1, 10, 0), "A")
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Same(t, original, appErr)
}

func TestVisitorService_EmptyClientRejected(t *testing.T) {
	store := &memoryStore{}
	svc := startService(t, store, VisitorOptions{})

	err := svc.RecordVisit(context.Background(), at(2024, 5, 1, 10, 0), "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.ErrorIs(t, err, domain.ErrEmptyClientID)

	_, saves := store.stats()
	assert.Zero(t, saves)
	assert.Zero(t, svc.Total(domain.AllScope()))
}

func TestVisitorService_IntervalFlush(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	svc := startService(t, store, VisitorOptions{SaveInterval: 10 * time.Millisecond})

	require.NoError(t, svc.RecordVisit(ctx, at(2024, 5, 1, 10, 0), "A"))

	assert.Eventually(t, func() bool {
		snapshot, _ := store.stats()
		return snapshot != nil && snapshot.Total == 1
	}, time.Second, 5*time.Millisecond)

	// a clean index is not rewritten on later ticks
	_, saves := store.stats()
	time.Sleep(50 * time.Millisecond)
	_, after := store.stats()
	assert.Equal(t, saves, after)

	require.NoError(t, svc.Stop(ctx))
}

func TestVisitorService_StopFlushes(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	svc := startService(t, store, VisitorOptions{SaveInterval: time.Hour})

	require.NoError(t, svc.RecordVisit(ctx, at(2024, 5, 1, 10, 0), "A"))
	require.NoError(t, svc.RecordVisit(ctx, at(2024, 5, 1, 11, 0), "B"))

	_, saves := store.stats()
	assert.Zero(t, saves)

	require.NoError(t, svc.Stop(ctx))
	snapshot, saves := store.stats()
	assert.Equal(t, 1, saves)
	assert.Equal(t, int64(2), snapshot.Total)

	// Stop is idempotent
	require.NoError(t, svc.Stop(ctx))
}

func TestVisitorService_StartFailures(t *testing.T) {
	tests := []struct {
		name  string
		store *memoryStore
	}{
		{"load error", &memoryStore{loadErr: apperrors.NewStorageError("boom", nil)}},
		{"corrupt snapshot", &memoryStore{snapshot: &domain.Snapshot{Version: 99}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewVisitorService(tt.store, nil, VisitorOptions{})
			assert.Error(t, svc.Start(context.Background()))
		})
	}
}

func TestVisitorService_GroupedInvalidResolution(t *testing.T) {
	svc := startService(t, &memoryStore{}, VisitorOptions{})

	_, err := svc.Grouped(at(2024, 1, 1, 0, 0), at(2024, 12, 31, 23, 0), domain.Resolution("decade"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidResolution)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	stats, err := svc.Grouped(at(2024, 1, 1, 0, 0), at(2024, 12, 31, 23, 0), domain.ResolutionMonth)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestVisitorService_ConcurrentVisits(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	svc := startService(t, store, VisitorOptions{})

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				assert.NoError(t, svc.RecordVisit(ctx, at(2024, 6, 1+i%28, i%24, 0), fmt.Sprintf("client-%d", w)))
			}
		}(w)
	}
	wg.Wait()

	snapshot, saves := store.stats()
	assert.Equal(t, workers*perWorker, saves)
	assert.Equal(t, int64(workers*perWorker), snapshot.Total)
	assert.Equal(t, int64(workers), svc.Unique(domain.AllScope()))
}
