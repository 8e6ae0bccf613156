package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestReceived   EventType = "request_received"
	EventRequestRejected   EventType = "request_rejected"
	EventResponseCompleted EventType = "response_completed"
	EventBreakerChanged    EventType = "breaker_changed"
)

// Rejection reasons carried by EventRequestRejected.
const (
	ReasonRateLimited = "rate_limited"
	ReasonCircuitOpen = "circuit_open"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Upstream   string
	Duration   time.Duration
	StatusCode int
	Reason     string
	State      string
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues an event without blocking. Events are dropped when the buffer is
// full. Emit on a nil collector is a no-op.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Dropping metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests(event.Upstream)

	case EventRequestRejected:
		c.metrics.RecordRejection(event.Upstream, event.Reason)

	case EventResponseCompleted:
		c.metrics.RecordResponse(event.Upstream, event.Duration, event.StatusCode)

	case EventBreakerChanged:
		c.metrics.UpdateBreakerState(event.Upstream, event.State)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
