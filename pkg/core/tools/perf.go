package tools

import (
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// NewLimiter returns a token-bucket limiter allowing rps requests per
// second, or nil for no limit when rps is zero or less.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// LatencyStats summarizes response times across a suite run.
type LatencyStats struct {
	Count int           `json:"count"`
	Min   time.Duration `json:"min_ms"`
	Max   time.Duration `json:"max_ms"`
	Avg   time.Duration `json:"avg_ms"`
	P50   time.Duration `json:"p50_ms"`
	P95   time.Duration `json:"p95_ms"`
	P99   time.Duration `json:"p99_ms"`
}

// ComputeLatencyStats calculates stats over latencies. The input is not
// modified.
func ComputeLatencyStats(latencies []time.Duration) LatencyStats {
	stats := LatencyStats{Count: len(latencies)}
	if len(latencies) == 0 {
		return stats
	}

	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	stats.P50 = sorted[percentileIndex(len(sorted), 50)]
	stats.P95 = sorted[percentileIndex(len(sorted), 95)]
	stats.P99 = sorted[percentileIndex(len(sorted), 99)]

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}
	stats.Avg = sum / time.Duration(len(sorted))
	return stats
}

// percentileIndex calculates the index for a given percentile
func percentileIndex(n int, percentile int) int {
	if n == 0 {
		return 0
	}
	index := int(math.Ceil(float64(n)*float64(percentile)/100.0)) - 1
	if index < 0 {
		index = 0
	}
	if index >= n {
		index = n - 1
	}
	return index
}

// String formats the stats for display.
func (s LatencyStats) String() string {
	if s.Count == 0 {
		return "no responses"
	}
	return fmt.Sprintf("min %v, avg %v, p50 %v, p95 %v, p99 %v, max %v",
		s.Min, s.Avg, s.P50, s.P95, s.P99, s.Max)
}
