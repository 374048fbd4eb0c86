package lock

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the introspection counters spec §6 names:
// deadlocks, wait_pending, wait_count, wait_time_max, wait_time_sum.
// Each Manager owns a private prometheus.Registry rather than
// registering into the global default registry, so tests can create
// many Managers without collector-name collisions.
type Metrics struct {
	Registry *prometheus.Registry

	deadlocks   prometheus.Counter
	waitPending prometheus.Gauge
	waitCount   prometheus.Counter
	waitTimeSum prometheus.Counter

	// waitTimeMax is kept outside prometheus as a plain atomic: a
	// running maximum has no native prometheus metric type (Gauge.Set
	// is a last-value, not a max), so it's tracked here and exported
	// through a GaugeFunc.
	waitTimeMaxNanos int64
}

// NewMetrics creates and registers the five counters into a fresh
// registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		deadlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lock_deadlocks_total",
			Help: "Number of deadlock cycles detected and resolved.",
		}),
		waitPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lock_wait_pending",
			Help: "Number of lock requests currently suspended.",
		}),
		waitCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lock_wait_count_total",
			Help: "Number of lock requests that ever had to wait.",
		}),
		waitTimeSum: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lock_wait_time_seconds_sum",
			Help: "Cumulative seconds spent waiting across all requests.",
		}),
	}
	m.Registry.MustRegister(m.deadlocks, m.waitPending, m.waitCount, m.waitTimeSum)
	m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "lock_wait_time_seconds_max",
		Help: "Longest single lock wait observed, in seconds.",
	}, func() float64 {
		return float64(atomic.LoadInt64(&m.waitTimeMaxNanos)) / 1e9
	}))
	return m
}

func (m *Metrics) recordDeadlock() { m.deadlocks.Inc() }

func (m *Metrics) beginWait() { m.waitPending.Inc(); m.waitCount.Inc() }

func (m *Metrics) endWait(durationNanos int64) {
	m.waitPending.Dec()
	m.waitTimeSum.Add(float64(durationNanos) / 1e9)
	for {
		cur := atomic.LoadInt64(&m.waitTimeMaxNanos)
		if durationNanos <= cur {
			return
		}
		if atomic.CompareAndSwapInt64(&m.waitTimeMaxNanos, cur, durationNanos) {
			return
		}
	}
}
