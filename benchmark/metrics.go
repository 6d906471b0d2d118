package benchmark

import (
	"sort"
	"time"
)

// Metrics captures one scenario's performance data.
type Metrics struct {
	Scenario        Scenario      `json:"scenario"`
	Timestamp       time.Time     `json:"timestamp"`
	TotalDuration   time.Duration `json:"total_duration"`
	MeanLatency     time.Duration `json:"mean_latency"`
	P50Latency      time.Duration `json:"p50_latency"`
	P95Latency      time.Duration `json:"p95_latency"`
	MaxLatency      time.Duration `json:"max_latency"`
	FramesPerSecond float64       `json:"frames_per_second"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
	Detections      int           `json:"detections"`
	Masks           int           `json:"masks"`
	ErrorRate       float64       `json:"error_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}

// percentile returns the q-quantile (0..1) of sorted latencies by nearest rank.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(q*float64(len(sorted))+0.5) - 1
	i = min(max(i, 0), len(sorted)-1)
	return sorted[i]
}

// summarize fills the latency fields from per-frame durations.
func (m *Metrics) summarize(latencies []time.Duration) {
	if len(latencies) == 0 {
		return
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	m.MeanLatency = sum / time.Duration(len(sorted))
	m.P50Latency = percentile(sorted, 0.5)
	m.P95Latency = percentile(sorted, 0.95)
	m.MaxLatency = sorted[len(sorted)-1]
}
