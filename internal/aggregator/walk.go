package aggregator

import "time"

// walkRange calls fn for every hour key in the closed range [lo, hi].
// Months are clamped to the boundary months in the first and last year, days
// to the real month length and the boundary days, hours to the boundary
// hours on the first and last day.
func walkRange(lo, hi HourKey, fn func(HourKey)) {
	if hi < lo {
		return
	}
	ly, lm, ld, lh := lo.split()
	hy, hm, hd, hh := hi.split()

	for y := ly; y <= hy; y++ {
		firstYear, lastYear := y == ly, y == hy

		mFrom, mTo := time.January, time.December
		if firstYear {
			mFrom = lm
		}
		if lastYear {
			mTo = hm
		}

		for m := mFrom; m <= mTo; m++ {
			firstMonth := firstYear && m == lm
			lastMonth := lastYear && m == hm

			dFrom, dTo := 1, daysIn(y, m)
			if firstMonth {
				dFrom = ld
			}
			if lastMonth {
				dTo = hd
			}

			for d := dFrom; d <= dTo; d++ {
				hFrom, hTo := 0, 23
				if firstMonth && d == ld {
					hFrom = lh
				}
				if lastMonth && d == hd {
					hTo = hh
				}

				for h := hFrom; h <= hTo; h++ {
					fn(makeKey(y, m, d, h))
				}
			}
		}
	}
}

// eachCell visits every non-empty bucket in [lo, hi]. Caller holds a.mu.
//
// Ranges wider than the index are served by scanning the buckets and
// filtering on the packed bounds, which yields the same cells.
func (a *Aggregator) eachCell(lo, hi HourKey, fn func(HourKey, map[string]int64)) {
	if hi < lo || len(a.buckets) == 0 {
		return
	}

	if hoursBetween(lo, hi) > int64(len(a.buckets)) {
		for k, cell := range a.buckets {
			if k >= lo && k <= hi {
				fn(k, cell)
			}
		}
		return
	}

	walkRange(lo, hi, func(k HourKey) {
		if cell, ok := a.buckets[k]; ok {
			fn(k, cell)
		}
	})
}
