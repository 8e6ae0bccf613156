package metrics_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/coe/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
	})

	It("processes each event type", func() {
		collector.Start(ctx)

		collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Upstream: ingest})
		collector.Emit(metrics.MetricEvent{Type: metrics.EventResponseCompleted, Upstream: ingest, Duration: 50 * time.Millisecond, StatusCode: 201})
		collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestRejected, Upstream: ingest, Reason: metrics.ReasonCircuitOpen})
		collector.Emit(metrics.MetricEvent{Type: metrics.EventBreakerChanged, Upstream: ingest, State: "OPEN"})

		Eventually(func() metrics.UpstreamMetrics {
			return collector.Snapshot().Upstreams[ingest]
		}).Should(SatisfyAll(
			HaveField("Requests", int64(1)),
			HaveField("AvgResponse", 50*time.Millisecond),
			HaveField("StatusCodes", HaveKeyWithValue(201, int64(1))),
			HaveField("Rejected", HaveKeyWithValue(metrics.ReasonCircuitOpen, int64(1))),
			HaveField("Breaker", "OPEN"),
		))
	})

	It("drains queued events on cancellation", func() {
		for i := 0; i < 5; i++ {
			collector.EventChannel() <- metrics.MetricEvent{
				Type:     metrics.EventRequestReceived,
				Upstream: ingest,
			}
		}

		cancel()
		collector.Start(ctx)

		Eventually(func() int64 {
			return collector.Snapshot().TotalRequests
		}).Should(Equal(int64(5)))
	})

	It("drops events instead of blocking when the buffer is full", func() {
		collector = metrics.NewCollector(1, slog.New(slog.NewTextHandler(io.Discard, nil)))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 10; i++ {
				collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Upstream: ingest})
			}
		}()
		Eventually(done).Should(BeClosed())
	})

	It("ignores events on a nil collector", func() {
		var c *metrics.Collector
		Expect(func() {
			c.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived})
		}).NotTo(Panic())
	})

	It("serves the snapshot as JSON", func() {
		collector.Start(ctx)
		collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Upstream: assets})
		Eventually(func() int64 { return collector.Snapshot().TotalRequests }).Should(Equal(int64(1)))

		rec := httptest.NewRecorder()
		collector.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

		var body struct {
			TotalRequests int64                     `json:"total_requests"`
			Upstreams     map[string]map[string]any `json:"upstreams"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.TotalRequests).To(Equal(int64(1)))
		Expect(body.Upstreams).To(HaveKey(assets))
	})
})
