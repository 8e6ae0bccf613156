package proxy

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"
)

// Upstream is one external origin (scheme and host) the rewrite table points at.
type Upstream struct {
	url               *url.URL
	proxy             *httputil.ReverseProxy
	mutex             sync.Mutex
	activeConnections int
	ewmaResponseTime  time.Duration
	hasEWMA           bool
}

const ewmaAlpha = 0.2

type targetKey struct{}

func withTarget(r *http.Request, target *url.URL) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), targetKey{}, target))
}

// ReverseProxy returns the HTTP reverse proxy for this upstream.
func (u *Upstream) ReverseProxy() *httputil.ReverseProxy {
	return u.proxy
}

// URL returns the upstream origin.
func (u *Upstream) URL() *url.URL {
	return u.url
}

func (u *Upstream) IncrementConn() {
	u.mutex.Lock()
	u.activeConnections++
	u.mutex.Unlock()
}

func (u *Upstream) DecrementConn() {
	u.mutex.Lock()
	if u.activeConnections > 0 {
		u.activeConnections--
	}
	u.mutex.Unlock()
}

func (u *Upstream) ActiveConnections() int {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.activeConnections
}

// RecordResponse folds the latest request duration into the moving average.
func (u *Upstream) RecordResponse(duration time.Duration) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if !u.hasEWMA {
		u.ewmaResponseTime = duration
		u.hasEWMA = true
		return
	}
	// ewma = (1 - α) * ewma + α * latest
	u.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(u.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the moving average response time, or 0 before the first
// response.
func (u *Upstream) EWMATime() time.Duration {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if !u.hasEWMA {
		return 0
	}
	return u.ewmaResponseTime
}

// rewrite points the outbound request at the target carried by the inbound
// request, falling back to the upstream origin.
func (u *Upstream) rewrite(pr *httputil.ProxyRequest) {
	target, _ := pr.In.Context().Value(targetKey{}).(*url.URL)
	if target == nil {
		target = u.url
	}

	out := *target
	pr.Out.URL = &out
	pr.Out.Host = target.Host
	pr.SetXForwarded()
}

// NewUpstream creates an Upstream for origin. transport may be nil.
func NewUpstream(origin *url.URL, transport http.RoundTripper, errorHandler func(http.ResponseWriter, *http.Request, error)) *Upstream {
	u := &Upstream{url: origin}
	u.proxy = &httputil.ReverseProxy{
		Rewrite:      u.rewrite,
		Transport:    transport,
		ErrorHandler: errorHandler,
	}
	return u
}
