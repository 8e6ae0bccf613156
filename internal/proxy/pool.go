package proxy

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/angeloszaimis/coe/internal/circuitbreaker"
	"github.com/angeloszaimis/coe/internal/metrics"
)

type Options struct {
	// RateLimit is the sustained number of proxied requests per second shared by
	// every upstream. Zero disables limiting.
	RateLimit        float64
	Burst            int
	BreakerThreshold int
	BreakerTimeout   time.Duration
	Transport        http.RoundTripper
}

// UpstreamStats is a point-in-time view of one upstream.
type UpstreamStats struct {
	Host              string        `json:"host"`
	ActiveConnections int           `json:"active_connections"`
	EWMAResponse      time.Duration `json:"ewma_response"`
	Breaker           string        `json:"breaker"`
}

// Pool forwards requests to external hosts, creating an Upstream per origin on
// first use.
type Pool struct {
	logger           *slog.Logger
	metricsCollector *metrics.Collector
	breakers         *circuitbreaker.Registry
	limiter          *rate.Limiter
	transport        http.RoundTripper

	mutex     sync.RWMutex
	upstreams map[string]*Upstream
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Forward proxies r to target, an absolute http(s) URL.
func (p *Pool) Forward(w http.ResponseWriter, r *http.Request, target *url.URL) {
	origin := originOf(target)

	if p.limiter != nil && !p.limiter.Allow() {
		p.logger.Warn("Proxy rate limit exceeded",
			slog.String("upstream", origin),
			slog.String("path", r.URL.Path))
		p.metricsCollector.Emit(metrics.MetricEvent{
			Type:     metrics.EventRequestRejected,
			Upstream: origin,
			Reason:   metrics.ReasonRateLimited,
		})
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	breaker := p.breakers.GetBreaker(origin)
	before := breaker.State()
	if !breaker.Allow() {
		p.logger.Warn("Circuit open, rejecting request", slog.String("upstream", origin))
		p.metricsCollector.Emit(metrics.MetricEvent{
			Type:     metrics.EventRequestRejected,
			Upstream: origin,
			Reason:   metrics.ReasonCircuitOpen,
		})
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}
	p.reportBreaker(origin, before, breaker.State())

	upstream := p.upstream(origin)
	upstream.IncrementConn()
	defer upstream.DecrementConn()

	p.metricsCollector.Emit(metrics.MetricEvent{
		Type:     metrics.EventRequestReceived,
		Upstream: origin,
	})

	start := time.Now()
	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	upstream.ReverseProxy().ServeHTTP(wrapped, withTarget(r, target))
	duration := time.Since(start)

	before = breaker.State()
	if wrapped.statusCode >= http.StatusInternalServerError {
		breaker.RecordFailure()
	} else {
		breaker.RecordSuccess()
	}
	p.reportBreaker(origin, before, breaker.State())

	upstream.RecordResponse(duration)
	p.metricsCollector.Emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Upstream:   origin,
		Duration:   duration,
		StatusCode: wrapped.statusCode,
	})
}

func (p *Pool) reportBreaker(origin string, before, after circuitbreaker.State) {
	if before == after {
		return
	}

	p.logger.Info("Circuit breaker state changed",
		slog.String("upstream", origin),
		slog.String("from", before.String()),
		slog.String("to", after.String()))
	p.metricsCollector.Emit(metrics.MetricEvent{
		Type:     metrics.EventBreakerChanged,
		Upstream: origin,
		State:    after.String(),
	})
}

func (p *Pool) upstream(origin string) *Upstream {
	p.mutex.RLock()
	u, ok := p.upstreams[origin]
	p.mutex.RUnlock()
	if ok {
		return u
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if u, ok = p.upstreams[origin]; ok {
		return u
	}

	originURL, _ := url.Parse(origin)
	u = NewUpstream(originURL, p.transport, p.errorHandler)
	p.upstreams[origin] = u
	return u
}

func (p *Pool) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.Error("Upstream request failed",
		slog.String("method", r.Method),
		slog.String("url", r.URL.Redacted()),
		slog.Any("err", err))
	w.WriteHeader(http.StatusBadGateway)
}

// Stats reports every upstream contacted so far, keyed by origin.
func (p *Pool) Stats() map[string]UpstreamStats {
	breakers := p.breakers.Stats()

	p.mutex.RLock()
	defer p.mutex.RUnlock()

	stats := make(map[string]UpstreamStats, len(p.upstreams))
	for origin, u := range p.upstreams {
		stats[origin] = UpstreamStats{
			Host:              u.URL().Host,
			ActiveConnections: u.ActiveConnections(),
			EWMAResponse:      u.EWMATime(),
			Breaker:           breakers[origin].String(),
		}
	}
	return stats
}

func originOf(target *url.URL) string {
	return target.Scheme + "://" + target.Host
}

// NewPool creates a Pool. collector may be nil.
func NewPool(logger *slog.Logger, collector *metrics.Collector, opts Options) *Pool {
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Pool{
		logger:           logger,
		metricsCollector: collector,
		breakers:         circuitbreaker.NewRegistry(opts.BreakerThreshold, opts.BreakerTimeout),
		limiter:          limiter,
		transport:        opts.Transport,
		upstreams:        make(map[string]*Upstream),
	}
}
