// Package circuitbreaker keeps the proxy from hammering an external host that is
// already failing.
//
// Each upstream host gets its own breaker with three states:
//
//   - CLOSED: requests are forwarded
//   - OPEN: the host failed too many times in a row, requests are rejected
//   - HALF-OPEN: the reset timeout elapsed, a single trial request goes to the host
//     and the rest are rejected until it completes
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(5, 30*time.Second)
//	cb := registry.GetBreaker("https://eu.i.posthog.com")
//	if cb.Allow() {
//	    // Forward...
//	    if status >= 500 {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
package circuitbreaker
