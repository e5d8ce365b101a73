package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's prometheus collectors. Each Gateway owns
// its own registry rather than registering into the global default one,
// so multiple Gateway instances (as in tests) never collide on metric
// name registration.
type Metrics struct {
	Registry *prometheus.Registry

	WritesTotal    *prometheus.CounterVec
	ReadsTotal     *prometheus.CounterVec
	DeletesTotal   *prometheus.CounterVec
	DedupHitsTotal prometheus.Counter
	WriteDuration  prometheus.Histogram
	ReadDuration   prometheus.Histogram
	QuorumFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		WritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "planetstore_writes_total",
			Help: "Total number of object write requests, by outcome.",
		}, []string{"outcome"}),
		ReadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "planetstore_reads_total",
			Help: "Total number of object read requests, by outcome.",
		}, []string{"outcome"}),
		DeletesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "planetstore_deletes_total",
			Help: "Total number of object delete requests, by outcome.",
		}, []string{"outcome"}),
		DedupHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "planetstore_dedup_hits_total",
			Help: "Total number of writes that deduplicated against existing content.",
		}),
		WriteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "planetstore_write_duration_seconds",
			Help:    "Write pipeline latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		ReadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "planetstore_read_duration_seconds",
			Help:    "Read pipeline latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		QuorumFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "planetstore_quorum_failures_total",
			Help: "Total number of writes that failed to reach quorum.",
		}),
	}
}
