package common

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is the metric set of the storage core. Every buffer pool owns one,
// built with NewStats(nil), which registers on a private registry. Passing
// the same Registerer to NewStats twice panics the same way prometheus
// always does on duplicate registration.
type Stats struct {
	// LogFlushWait accumulates the time the buffer pool spent waiting for the
	// log manager while enforcing the write ahead rule.
	LogFlushWait prometheus.Counter

	FetchTotal prometheus.Counter
	MissTotal  prometheus.Counter
	EvictTotal prometheus.Counter
}

func NewStats(reg prometheus.Registerer) *Stats {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Stats{
		LogFlushWait: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinydb_log_flush_wait_seconds",
			Help: "Total time spent flushing the log before writing a dirty page.",
		}),
		FetchTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinydb_buffer_fetch_total",
			Help: "Total page fetches served by the buffer pool.",
		}),
		MissTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinydb_buffer_pool_miss_total",
			Help: "Fetches that had to read the page from disk.",
		}),
		EvictTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tinydb_buffer_evict_total",
			Help: "Pages evicted from the buffer pool.",
		}),
	}

	reg.MustRegister(s.LogFlushWait, s.FetchTotal, s.MissTotal, s.EvictTotal)
	return s
}

// ObserveFlushWait adds an elapsed log flush duration to the counter.
func (s *Stats) ObserveFlushWait(d time.Duration) {
	s.LogFlushWait.Add(d.Seconds())
}
