package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	threadsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coachchat_threads_created_total",
		Help: "Total number of threads created.",
	})
	threadsArchived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coachchat_threads_archived_total",
		Help: "Total number of threads archived.",
	})
	notificationsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coachchat_archive_notifications_total",
		Help: "Total number of participant archive notifications emitted.",
	})
	cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coachchat_cache_hits_total",
		Help: "Cache hits by lookup kind.",
	}, []string{"kind"})
	cacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coachchat_cache_misses_total",
		Help: "Cache misses by lookup kind.",
	}, []string{"kind"})
	opDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coachchat_store_op_duration_seconds",
		Help:    "Latency of thread store operations.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		threadsCreated,
		threadsArchived,
		notificationsEmitted,
		cacheHits,
		cacheMisses,
		opDuration,
	)
}

func observeOp(op string, start time.Time) {
	opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
