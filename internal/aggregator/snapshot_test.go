package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitstats/internal/domain"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	src := New(time.UTC)
	randomVisits(t, src, 800)

	dst := New(time.UTC)
	require.NoError(t, dst.Restore(src.Snapshot()))

	assert.Equal(t, src.Snapshot(), dst.Snapshot())

	start, end := at(2023, 2, 14, 6, 0), at(2024, 7, 4, 18, 0)
	assert.Equal(t, src.Range(start, end), dst.Range(start, end))
	assert.Equal(t, src.WeekdayBreakdown(start, end), dst.WeekdayBreakdown(start, end))

	for _, res := range []domain.Resolution{
		domain.ResolutionHour,
		domain.ResolutionDay,
		domain.ResolutionMonth,
		domain.ResolutionYear,
	} {
		want, err := src.Grouped(start, end, res)
		require.NoError(t, err)
		got, err := dst.Grouped(start, end, res)
		require.NoError(t, err)
		assert.Equal(t, want, got, string(res))
	}

	for d := at(2023, 1, 1, 0, 0); d.Before(at(2025, 1, 1, 0, 0)); d = d.AddDate(0, 0, 17) {
		assert.Equal(t, src.Summary(d), dst.Summary(d))
	}
}

func TestSnapshot_Layout(t *testing.T) {
	agg := newTestAggregator(t,
		visit(at(2024, 1, 2, 3, 0), "B"),
		visit(at(2024, 1, 1, 0, 0), "A"),
		visit(at(2024, 1, 1, 0, 30), "A"),
	)

	s := agg.Snapshot()
	assert.Equal(t, domain.SnapshotVersion, s.Version)
	assert.Equal(t, int64(3), s.Total)
	assert.Equal(t, map[string]int64{"A": 2, "B": 1}, s.Clients)
	assert.Equal(t, []domain.BucketRecord{
		{Year: 2024, Month: 1, Day: 1, Hour: 0, Clients: map[string]int64{"A": 2}},
		{Year: 2024, Month: 1, Day: 2, Hour: 3, Clients: map[string]int64{"B": 1}},
	}, s.Buckets)

	// the snapshot is a copy
	s.Buckets[0].Clients["A"] = 99
	assert.Equal(t, int64(3), agg.Total(domain.AllScope()))
}

func TestRestore_Nil(t *testing.T) {
	agg := newTestAggregator(t, visit(at(2024, 1, 1, 0, 0), "A"))

	require.NoError(t, agg.Restore(nil))
	assert.Zero(t, agg.Total(domain.AllScope()))
	assert.Zero(t, agg.Buckets())
}

func TestRestore_WithoutClientSet(t *testing.T) {
	agg := New(time.UTC)

	err := agg.Restore(&domain.Snapshot{
		Version: domain.SnapshotVersion,
		Total:   3,
		Buckets: []domain.BucketRecord{
			{Year: 2024, Month: 1, Day: 1, Hour: 0, Clients: map[string]int64{"A": 2, "B": 1}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.Unique(domain.AllScope()))
}

func TestRestore_Corrupt(t *testing.T) {
	good := func() *domain.Snapshot {
		return &domain.Snapshot{
			Version: domain.SnapshotVersion,
			Total:   2,
			Clients: map[string]int64{"A": 2},
			Buckets: []domain.BucketRecord{
				{Year: 2024, Month: 1, Day: 1, Hour: 0, Clients: map[string]int64{"A": 2}},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(s *domain.Snapshot)
	}{
		{"unknown version", func(s *domain.Snapshot) { s.Version = 7 }},
		{"total mismatch", func(s *domain.Snapshot) { s.Total = 5 }},
		{"client set mismatch", func(s *domain.Snapshot) { s.Clients = map[string]int64{"B": 2} }},
		{"year out of range", func(s *domain.Snapshot) { s.Buckets[0].Year = 10_000_000_000_000 }},
		{"negative year", func(s *domain.Snapshot) { s.Buckets[0].Year = -1 }},
		{"month out of range", func(s *domain.Snapshot) { s.Buckets[0].Month = 13 }},
		{"day past month end", func(s *domain.Snapshot) { s.Buckets[0].Month, s.Buckets[0].Day = 2, 30 }},
		{"hour out of range", func(s *domain.Snapshot) { s.Buckets[0].Hour = 24 }},
		{"zero count", func(s *domain.Snapshot) { s.Buckets[0].Clients["A"] = 0 }},
		{"empty client", func(s *domain.Snapshot) { s.Buckets[0].Clients = map[string]int64{"": 2} }},
		{"empty bucket", func(s *domain.Snapshot) { s.Buckets[0].Clients = map[string]int64{} }},
		{"duplicate bucket", func(s *domain.Snapshot) {
			s.Buckets = append(s.Buckets, s.Buckets[0])
			s.Total = 4
			s.Clients = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newTestAggregator(t, visit(at(2020, 5, 5, 5, 0), "keep"))

			s := good()
			tt.mutate(s)
			err := agg.Restore(s)
			assert.ErrorIs(t, err, domain.ErrCorruptSnapshot)

			// the previous index survives a rejected restore
			assert.Equal(t, int64(1), agg.Total(domain.AllScope()))
		})
	}
}
