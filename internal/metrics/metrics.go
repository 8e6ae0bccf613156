package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	rejections    map[string]map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	breakerStates map[string]string
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                      `json:"total_requests"`
	TotalRejected int64                      `json:"total_rejected"`
	UptimeSeconds float64                    `json:"uptime_seconds"`
	Upstreams     map[string]UpstreamMetrics `json:"upstreams"`
}

type UpstreamMetrics struct {
	Requests    int64            `json:"requests"`
	Rejected    map[string]int64 `json:"rejected,omitempty"`
	Breaker     string           `json:"breaker"`
	AvgResponse time.Duration    `json:"avg_response"`
	P50Response time.Duration    `json:"p50_response"`
	P95Response time.Duration    `json:"p95_response"`
	P99Response time.Duration    `json:"p99_response"`
	StatusCodes map[int]int64    `json:"status_codes"`
}

func (m *Metrics) IncrementRequests(upstream string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[upstream]++
}

func (m *Metrics) RecordRejection(upstream, reason string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.rejections[upstream] == nil {
		m.rejections[upstream] = make(map[string]int64)
	}
	m.rejections[upstream][reason]++
}

func (m *Metrics) RecordResponse(upstream string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responseTimes[upstream] = append(m.responseTimes[upstream], duration)
	if len(m.responseTimes[upstream]) > maxSamples {
		m.responseTimes[upstream] = m.responseTimes[upstream][1:]
	}

	if m.statusCodes[upstream] == nil {
		m.statusCodes[upstream] = make(map[int]int64)
	}
	m.statusCodes[upstream][statusCode]++
}

func (m *Metrics) UpdateBreakerState(upstream, state string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.breakerStates[upstream] = state
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(m.startTime).Seconds(),
		Upstreams:     make(map[string]UpstreamMetrics),
	}

	all := make(map[string]bool)
	for upstream := range m.requests {
		all[upstream] = true
	}
	for upstream := range m.rejections {
		all[upstream] = true
	}
	for upstream := range m.responseTimes {
		all[upstream] = true
	}
	for upstream := range m.breakerStates {
		all[upstream] = true
	}

	for upstream := range all {
		snap.TotalRequests += m.requests[upstream]

		um := UpstreamMetrics{
			Requests:    m.requests[upstream],
			Breaker:     m.breakerStates[upstream],
			StatusCodes: copyCounts(m.statusCodes[upstream]),
		}
		if um.Breaker == "" {
			um.Breaker = "CLOSED"
		}

		if rejected := m.rejections[upstream]; len(rejected) > 0 {
			um.Rejected = make(map[string]int64, len(rejected))
			for reason, n := range rejected {
				um.Rejected[reason] = n
				snap.TotalRejected += n
			}
		}

		durations := m.responseTimes[upstream]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			um.AvgResponse = average(sorted)
			um.P50Response = percentile(sorted, 0.50)
			um.P95Response = percentile(sorted, 0.95)
			um.P99Response = percentile(sorted, 0.99)
		}

		snap.Upstreams[upstream] = um
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		rejections:    make(map[string]map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		breakerStates: make(map[string]string),
		startTime:     time.Now(),
	}
}

func copyCounts(in map[int]int64) map[int]int64 {
	out := make(map[int]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
