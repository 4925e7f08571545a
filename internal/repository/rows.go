package repository

import (
	"fmt"

	"visitstats/internal/domain"
)

// bucketAssembler folds (year, month, day, hour, client, visits) rows,
// ordered by hour, back into bucket records.
type bucketAssembler struct {
	buckets []domain.BucketRecord
	total   int64
}

func (b *bucketAssembler) add(year, month, day, hour int, client string, visits int64) {
	n := len(b.buckets)
	if n == 0 || !sameHour(b.buckets[n-1], year, month, day, hour) {
		b.buckets = append(b.buckets, domain.BucketRecord{
			Year:    year,
			Month:   month,
			Day:     day,
			Hour:    hour,
			Clients: make(map[string]int64, 1),
		})
		n++
	}
	b.buckets[n-1].Clients[client] += visits
	b.total += visits
}

func sameHour(b domain.BucketRecord, year, month, day, hour int) bool {
	return b.Year == year && b.Month == month && b.Day == day && b.Hour == hour
}

// bucketRow is one cell of a snapshot, flattened for SQL backends
type bucketRow struct {
	Year, Month, Day, Hour int
	ClientID               string
	Visits                 int64
}

func flatten(s *domain.Snapshot) []bucketRow {
	var n int
	for _, b := range s.Buckets {
		n += len(b.Clients)
	}
	rows := make([]bucketRow, 0, n)
	for _, b := range s.Buckets {
		for client, visits := range b.Clients {
			rows = append(rows, bucketRow{
				Year:     b.Year,
				Month:    b.Month,
				Day:      b.Day,
				Hour:     b.Hour,
				ClientID: client,
				Visits:   visits,
			})
		}
	}
	return rows
}

func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrCorruptSnapshot, fmt.Sprintf(format, args...))
}
