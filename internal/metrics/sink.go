package metrics

import "time"

// Sink defines the interface for recording metrics.
// Implementations must not block or propagate errors.
type Sink interface {
	// Ingestion
	VisitRecorded()
	VisitRejected()

	// Persistence
	SaveCompleted(duration time.Duration, buckets int, err error)

	// Queries
	QueryServed(kind string)
}

// Query kinds for QueryServed.
const (
	QuerySummary  = "summary"
	QueryRange    = "range"
	QueryGrouped  = "grouped"
	QueryWeekdays = "weekdays"
)
