package circuitbreaker

import (
	"sync"
	"time"
)

// Registry hands out one breaker per upstream host, created on first use.
type Registry struct {
	mutex     sync.RWMutex
	breakers  map[string]*CircuitBreaker
	threshold int
	timeout   time.Duration
}

func NewRegistry(threshold int, timeout time.Duration) *Registry {
	return &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		threshold: threshold,
		timeout:   timeout,
	}
}

func (r *Registry) GetBreaker(host string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[host]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Another goroutine may have created it
	if cb, exists = r.breakers[host]; exists {
		return cb
	}

	cb = NewCircuitBreaker(r.threshold, r.timeout)
	r.breakers[host] = cb
	return cb
}

func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for host, cb := range r.breakers {
		stats[host] = cb.State()
	}
	return stats
}
