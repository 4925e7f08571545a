package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) VisitRecorded()                                               {}
func (n *NoopSink) VisitRejected()                                               {}
func (n *NoopSink) SaveCompleted(duration time.Duration, buckets int, err error) {}
func (n *NoopSink) QueryServed(kind string)                                      {}
