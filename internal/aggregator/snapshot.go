package aggregator

import (
	"fmt"
	"sort"
	"time"

	"visitstats/internal/domain"
)

// Snapshot copies the index into its persisted form. Buckets are ordered
// chronologically.
func (a *Aggregator) Snapshot() *domain.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	keys := make([]HourKey, 0, len(a.buckets))
	for k := range a.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buckets := make([]domain.BucketRecord, 0, len(keys))
	for _, k := range keys {
		y, m, d, h := k.split()
		buckets = append(buckets, domain.BucketRecord{
			Year:    y,
			Month:   int(m),
			Day:     d,
			Hour:    h,
			Clients: copyCounts(a.buckets[k]),
		})
	}

	return &domain.Snapshot{
		Version: domain.SnapshotVersion,
		Total:   a.total,
		Clients: copyCounts(a.clients),
		Buckets: buckets,
	}
}

// Restore replaces the whole index with s. A nil snapshot empties the index.
// The running total and client set are re-derived from the buckets and must
// agree with the ones persisted, otherwise domain.ErrCorruptSnapshot is
// returned and the current index is left untouched.
func (a *Aggregator) Restore(s *domain.Snapshot) error {
	buckets := make(map[HourKey]map[string]int64)
	clients := make(map[string]int64)
	var total int64

	if s != nil {
		if s.Version != domain.SnapshotVersion {
			return fmt.Errorf("%w: unsupported version %d", domain.ErrCorruptSnapshot, s.Version)
		}

		for _, b := range s.Buckets {
			month := time.Month(b.Month)
			if !validKey(b.Year, month, b.Day, b.Hour) {
				return fmt.Errorf("%w: bucket %04d-%02d-%02d %02d:00 out of range",
					domain.ErrCorruptSnapshot, b.Year, b.Month, b.Day, b.Hour)
			}
			k := makeKey(b.Year, month, b.Day, b.Hour)
			if _, dup := buckets[k]; dup {
				return fmt.Errorf("%w: duplicate bucket %04d-%02d-%02d %02d:00",
					domain.ErrCorruptSnapshot, b.Year, b.Month, b.Day, b.Hour)
			}
			if len(b.Clients) == 0 {
				return fmt.Errorf("%w: empty bucket %04d-%02d-%02d %02d:00",
					domain.ErrCorruptSnapshot, b.Year, b.Month, b.Day, b.Hour)
			}

			cell := make(map[string]int64, len(b.Clients))
			for client, n := range b.Clients {
				if client == "" || n <= 0 {
					return fmt.Errorf("%w: bad cell %q=%d", domain.ErrCorruptSnapshot, client, n)
				}
				cell[client] = n
				clients[client] += n
				total += n
			}
			buckets[k] = cell
		}

		if s.Total != total {
			return fmt.Errorf("%w: total %d does not match bucket sum %d", domain.ErrCorruptSnapshot, s.Total, total)
		}
		if s.Clients != nil && !sameCounts(s.Clients, clients) {
			return fmt.Errorf("%w: client set does not match buckets", domain.ErrCorruptSnapshot)
		}
	}

	a.mu.Lock()
	a.buckets = buckets
	a.clients = clients
	a.total = total
	a.mu.Unlock()
	return nil
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func sameCounts(a, b map[string]int64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
