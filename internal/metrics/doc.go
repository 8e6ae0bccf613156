// Package metrics collects counters for the requests the proxy forwards to
// external hosts.
//
// Events flow through a buffered channel into a single collector goroutine, so
// the request path never blocks on bookkeeping. Per upstream host it tracks:
//   - forwarded requests
//   - rejections, by reason (rate limited, circuit open)
//   - response times with P50, P95 and P99
//   - status code distribution
//   - the last reported circuit breaker state
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Upstream:   "https://eu.i.posthog.com",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot()
//
// Pending events are drained when the context is cancelled.
package metrics
