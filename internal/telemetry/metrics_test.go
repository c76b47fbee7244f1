package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountersAndGauges(t *testing.T) {
	m := NewMetricsCollector()

	m.IncrementCounter(MetricGateAdmits, 1)
	m.IncrementCounter(MetricGateAdmits, 2)
	m.SetGauge(MetricItemCount, 12)

	assert.Equal(t, int64(3), m.GetCounter(MetricGateAdmits))
	assert.Equal(t, 12.0, m.GetGauge(MetricItemCount))
	assert.Zero(t, m.GetCounter("missing"))
	assert.Zero(t, m.GetTimerAverage("missing"))
}

func TestTimerWindowKeepsRecentSamples(t *testing.T) {
	m := NewMetricsCollector()
	for i := 1; i <= 150; i++ {
		m.RecordTimer(MetricRebuildTime, time.Duration(i)*time.Millisecond)
	}

	summary := m.Snapshot().Timers[MetricRebuildTime]
	assert.Equal(t, maxTimerSamples, summary.Count)

	// 51ms..150ms survive.
	assert.Equal(t, 100500*time.Microsecond, m.GetTimerAverage(MetricRebuildTime))
	assert.Equal(t, 100500*time.Microsecond, summary.Avg)
	assert.Equal(t, 146*time.Millisecond, summary.P95)
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewMetricsCollector()
	m.IncrementCounter(MetricRebuilds, 1)
	m.RecordTimestamp(MetricLastRebuild)

	snap := m.Snapshot()
	assert.Contains(t, snap.Timestamps, MetricLastRebuild)

	m.IncrementCounter(MetricRebuilds, 1)
	assert.Equal(t, int64(1), snap.Counters[MetricRebuilds])
	assert.Equal(t, int64(2), m.GetCounter(MetricRebuilds))
}

func TestConcurrentUpdates(t *testing.T) {
	m := NewMetricsCollector()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.IncrementCounter(MetricGateDenials, 1)
				m.RecordTimer(MetricNamingTime, time.Millisecond)
				_ = m.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), m.GetCounter(MetricGateDenials))
	assert.Equal(t, time.Millisecond, m.GetTimerAverage(MetricNamingTime))
}
