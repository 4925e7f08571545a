package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"visitstats/pkg/logger"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	log *logger.Logger

	visitsTotal   prometheus.Counter
	rejectedTotal prometheus.Counter

	savesTotal    *prometheus.CounterVec
	saveDuration  prometheus.Histogram
	bucketsStored prometheus.Gauge
	lastSave      prometheus.Gauge

	queriesTotal *prometheus.CounterVec
}

// NewPrometheusSink creates a new Prometheus metrics sink registered on reg.
func NewPrometheusSink(reg prometheus.Registerer, log *logger.Logger) *PrometheusSink {
	if log == nil {
		log = logger.NewNop()
	}
	s := &PrometheusSink{log: log.Named("metrics")}
	s.initIngestMetrics(reg)
	s.initStoreMetrics(reg)
	s.initQueryMetrics(reg)
	return s
}

func (s *PrometheusSink) initIngestMetrics(reg prometheus.Registerer) {
	s.visitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visitstats_visits_recorded_total",
		Help: "Total number of visits accepted into the index.",
	})
	s.rejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visitstats_visits_rejected_total",
		Help: "Total number of visits rejected before indexing.",
	})

	s.register(reg, s.visitsTotal, "visitstats_visits_recorded_total")
	s.register(reg, s.rejectedTotal, "visitstats_visits_rejected_total")
}

func (s *PrometheusSink) initStoreMetrics(reg prometheus.Registerer) {
	s.savesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "visitstats_snapshot_saves_total",
		Help: "Total number of snapshot saves by result.",
	}, []string{"result"})
	s.saveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "visitstats_snapshot_save_duration_seconds",
		Help:    "Duration of snapshot saves in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
	s.bucketsStored = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "visitstats_snapshot_buckets",
		Help: "Number of hour buckets in the last successful snapshot.",
	})
	s.lastSave = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "visitstats_snapshot_last_success_timestamp_seconds",
		Help: "Unix time of the last successful snapshot save.",
	})

	s.register(reg, s.savesTotal, "visitstats_snapshot_saves_total")
	s.register(reg, s.saveDuration, "visitstats_snapshot_save_duration_seconds")
	s.register(reg, s.bucketsStored, "visitstats_snapshot_buckets")
	s.register(reg, s.lastSave, "visitstats_snapshot_last_success_timestamp_seconds")
}

func (s *PrometheusSink) initQueryMetrics(reg prometheus.Registerer) {
	s.queriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "visitstats_queries_total",
		Help: "Total number of aggregate queries served by kind.",
	}, []string{"kind"})

	s.register(reg, s.queriesTotal, "visitstats_queries_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		s.log.WithError(err).WithField("metric", name).Warn("Failed to register metric")
	}
}

func (s *PrometheusSink) VisitRecorded() {
	s.visitsTotal.Inc()
}

func (s *PrometheusSink) VisitRejected() {
	s.rejectedTotal.Inc()
}

func (s *PrometheusSink) SaveCompleted(duration time.Duration, buckets int, err error) {
	s.saveDuration.Observe(duration.Seconds())
	if err != nil {
		s.savesTotal.WithLabelValues("error").Inc()
		return
	}
	s.savesTotal.WithLabelValues("ok").Inc()
	s.bucketsStored.Set(float64(buckets))
	s.lastSave.SetToCurrentTime()
}

func (s *PrometheusSink) QueryServed(kind string) {
	s.queriesTotal.WithLabelValues(kind).Inc()
}
