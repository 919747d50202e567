package monitor

import (
	"math"
	"sort"

	"github.com/assetwatch/assetwatch/internal/model"
)

// GetStats computes a snapshot over the metrics whose timestamp falls inside
// window. A nil window means the 24 hours ending now. The buffer is copied
// under a read lock and the aggregation runs without holding it.
func (m *Monitor) GetStats(window *model.TimeRange) model.MonitoringStats {
	var tr model.TimeRange
	if window != nil {
		tr = *window
	} else {
		tr = model.LastDay(m.now())
	}

	m.mu.RLock()
	inRange := m.buffer.filter(func(metric *model.PerformanceMetric) bool {
		return tr.Contains(metric.Timestamp)
	})
	m.mu.RUnlock()

	return computeStats(inRange, tr)
}

// computeStats aggregates metrics into a snapshot. Averages and percentiles
// use successful metrics only; hit rates use every request. An empty set
// yields zero counts, zero latencies and 100% availability.
func computeStats(metrics []model.PerformanceMetric, window model.TimeRange) model.MonitoringStats {
	stats := model.MonitoringStats{
		TimeRange:           window,
		AvailabilityPercent: 100,
	}

	loadTimes := make([]float64, 0, len(metrics))
	var sum float64
	var cacheHits, cdnHits int

	for i := range metrics {
		metric := &metrics[i]
		stats.TotalRequests++
		if metric.Success {
			stats.SuccessfulRequests++
			loadTimes = append(loadTimes, metric.LoadTimeMs)
			sum += metric.LoadTimeMs
		} else {
			stats.FailedRequests++
		}
		if metric.IsCacheHit() {
			cacheHits++
		}
		if metric.IsCDNHit() {
			cdnHits++
		}
	}

	if stats.TotalRequests == 0 {
		return stats
	}

	total := float64(stats.TotalRequests)
	stats.ErrorRatePercent = float64(stats.FailedRequests) / total * 100
	stats.AvailabilityPercent = 100 - stats.ErrorRatePercent
	stats.CacheHitRatePercent = float64(cacheHits) / total * 100
	stats.CDNHitRatePercent = float64(cdnHits) / total * 100

	if len(loadTimes) > 0 {
		stats.AverageLoadTimeMs = sum / float64(len(loadTimes))
		sort.Float64s(loadTimes)
		stats.P95LoadTimeMs = percentile(loadTimes, 0.95)
		stats.P99LoadTimeMs = percentile(loadTimes, 0.99)
	}

	return stats
}

// percentile indexes sorted at floor(n*p), clamped to the last element.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(float64(n) * p))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
