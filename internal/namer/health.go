package namer

import (
	"context"
	"errors"
	"time"

	"github.com/localrivet/latentfs/internal/namer/providers"
	"github.com/localrivet/latentfs/internal/telemetry"
)

// Version is reported in health reports. It is set at build time.
var Version = "dev"

// HealthStatus is the coarse state of the namer or one of its parts.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthReport is what the health tool and GET /health show for an AI namer.
type HealthReport struct {
	Status        HealthStatus            `json:"status"`
	Timestamp     time.Time               `json:"timestamp"`
	Components    map[string]HealthStatus `json:"components"`
	Providers     map[string]bool         `json:"providers"`
	ResponseTimes map[string]float64      `json:"response_times_ms"`
	CacheStats    map[string]int64        `json:"cache_stats"`
	SuccessRate   float64                 `json:"success_rate"`
	TotalRequests int64                   `json:"total_requests"`
	Version       string                  `json:"version"`
}

var errNoNamer = errors.New("namer is nil")

// CreateHealthReport probes every provider and summarizes the namer's
// metrics. An unhealthy report still means labels are produced, by the
// keyword fallback.
func CreateHealthReport(ctx context.Context, n *AINamer) (*HealthReport, error) {
	if n == nil || n.metrics == nil {
		return nil, errNoNamer
	}
	m := n.metrics
	probed := n.CheckProviderHealth(ctx)

	r := &HealthReport{
		Status:    overallStatus(probed),
		Timestamp: time.Now(),
		Components: map[string]HealthStatus{
			"cache":     StatusHealthy,
			"keyword":   StatusHealthy,
			"primary":   StatusUnhealthy,
			"fallbacks": StatusUnhealthy,
		},
		Providers: probed,
		ResponseTimes: map[string]float64{
			"total": millis(m.GetTimerAverage(telemetry.MetricNamingTime)),
		},
		CacheStats: map[string]int64{
			"hits":   m.GetCounter(telemetry.MetricCacheHits),
			"misses": m.GetCounter(telemetry.MetricCacheMisses),
			"size":   int64(m.GetGauge(telemetry.MetricCacheSize)),
		},
		Version: Version,
	}

	for _, name := range []string{providers.ProviderAnthropic, providers.ProviderOpenAI, providers.ProviderGoogle} {
		r.ResponseTimes[name] = millis(m.GetTimerAverage(responseTimeMetric(name)))
	}

	primary := n.PrimaryProvider()
	for name, ok := range probed {
		switch {
		case !ok:
		case name == primary:
			r.Components["primary"] = StatusHealthy
		default:
			r.Components["fallbacks"] = StatusHealthy
		}
	}

	ok := m.GetCounter(telemetry.MetricAPICallsSuccess)
	r.TotalRequests = ok + m.GetCounter(telemetry.MetricAPICallsFailure)
	if r.TotalRequests > 0 {
		r.SuccessRate = 100 * float64(ok) / float64(r.TotalRequests)
	}
	return r, nil
}

// overallStatus is healthy when every probed provider answered, unhealthy
// when none did.
func overallStatus(probed map[string]bool) HealthStatus {
	up := 0
	for _, ok := range probed {
		if ok {
			up++
		}
	}
	switch {
	case up == 0:
		return StatusUnhealthy
	case up < len(probed):
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
