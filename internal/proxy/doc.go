// Package proxy forwards rewritten requests to external hosts. Each host gets an
// Upstream wrapping an httputil.ReverseProxy with connection and response time
// tracking. The Pool in front of them applies a shared rate limit and a circuit
// breaker per host.
package proxy
