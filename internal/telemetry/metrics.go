// Package telemetry provides metrics collection and reporting for the
// grouping pipeline and its collaborators.
package telemetry

import (
	"slices"
	"sync"
	"time"
)

// maxTimerSamples bounds the samples kept per timer.
const maxTimerSamples = 100

// MetricsCollector is a mutex-guarded set of named counters, gauges, timers
// and event timestamps. The zero value is not usable; call
// NewMetricsCollector.
type MetricsCollector struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]float64
	timers   map[string]*timerWindow
	events   map[string]time.Time
}

// timerWindow keeps the most recent maxTimerSamples durations.
type timerWindow struct {
	samples []time.Duration
}

func (w *timerWindow) add(d time.Duration) {
	if len(w.samples) == maxTimerSamples {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:maxTimerSamples-1]
	}
	w.samples = append(w.samples, d)
}

func (w *timerWindow) mean() time.Duration {
	if w == nil || len(w.samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range w.samples {
		sum += d
	}
	return sum / time.Duration(len(w.samples))
}

// p95 is the sample at the 95th percentile rank, rounded down.
func (w *timerWindow) p95() time.Duration {
	if w == nil || len(w.samples) == 0 {
		return 0
	}
	sorted := slices.Clone(w.samples)
	slices.Sort(sorted)
	return sorted[min(len(sorted)*95/100, len(sorted)-1)]
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters: map[string]int64{},
		gauges:   map[string]float64{},
		timers:   map[string]*timerWindow{},
		events:   map[string]time.Time{},
	}
}

func (m *MetricsCollector) IncrementCounter(name string, amount int64) {
	m.mu.Lock()
	m.counters[name] += amount
	m.mu.Unlock()
}

func (m *MetricsCollector) SetGauge(name string, value float64) {
	m.mu.Lock()
	m.gauges[name] = value
	m.mu.Unlock()
}

func (m *MetricsCollector) RecordTimer(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.timers[name]
	if !ok {
		w = &timerWindow{}
		m.timers[name] = w
	}
	w.add(d)
}

// RecordTimestamp marks that the named event happened now.
func (m *MetricsCollector) RecordTimestamp(name string) {
	m.mu.Lock()
	m.events[name] = time.Now()
	m.mu.Unlock()
}

func (m *MetricsCollector) GetCounter(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[name]
}

func (m *MetricsCollector) GetGauge(name string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[name]
}

// GetTimerAverage is the mean of the retained samples, or 0 when the timer
// was never recorded.
func (m *MetricsCollector) GetTimerAverage(name string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timers[name].mean()
}

// TimerSummary is the aggregated view of one timer.
type TimerSummary struct {
	Count int           `json:"count"`
	Avg   time.Duration `json:"avg_ns"`
	P95   time.Duration `json:"p95_ns"`
}

// Snapshot is a point-in-time copy of every metric, suitable for JSON.
type Snapshot struct {
	Counters   map[string]int64        `json:"counters"`
	Gauges     map[string]float64      `json:"gauges"`
	Timers     map[string]TimerSummary `json:"timers"`
	Timestamps map[string]time.Time    `json:"timestamps"`
}

// Snapshot copies the current metrics.
func (m *MetricsCollector) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	timers := make(map[string]TimerSummary, len(m.timers))
	for name, w := range m.timers {
		timers[name] = TimerSummary{Count: len(w.samples), Avg: w.mean(), P95: w.p95()}
	}
	return Snapshot{
		Counters:   cloneMap(m.counters),
		Gauges:     cloneMap(m.gauges),
		Timers:     timers,
		Timestamps: cloneMap(m.events),
	}
}

func cloneMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
