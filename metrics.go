package ardentid

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricOTPIssued
	MetricOTPSendFailure
	MetricOTPVerifySuccess
	MetricOTPVerifyFailure
	MetricDependencyFailure
	MetricPasswordHashLatency
	metricIDCount
)

// Upper bounds of the password hash latency buckets; a final bucket catches
// everything slower.
var hashLatencyBounds = [...]time.Duration{
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
}

const hashLatencyBuckets = len(hashLatencyBounds) + 1

// counter occupies its own cache line so hot counters do not contend.
type counter struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free engine counters and the password hash latency
// histogram. A nil or disabled Metrics ignores updates.
type Metrics struct {
	on        bool
	latencyOn bool

	counters    [metricIDCount]counter
	hashLatency [hashLatencyBuckets]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters. Histogram buckets
// are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		on:        cfg.Enabled,
		latencyOn: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool        { return m != nil && m.on }
func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latencyOn }

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d against id. Only MetricPasswordHashLatency has a
// histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricPasswordHashLatency {
		return
	}
	m.hashLatency[latencyBucket(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return snap
	}

	for id := range MetricPasswordHashLatency {
		snap.Counters[id] = m.counters[id].Load()
	}
	if m.latencyOn {
		buckets := make([]uint64, hashLatencyBuckets)
		for i := range buckets {
			buckets[i] = m.hashLatency[i].Load()
		}
		snap.Histograms[MetricPasswordHashLatency] = buckets
	}
	return snap
}

func latencyBucket(d time.Duration) int {
	for i, upper := range hashLatencyBounds {
		if d <= upper {
			return i
		}
	}
	return len(hashLatencyBounds)
}
