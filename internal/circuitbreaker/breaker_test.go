package circuitbreaker_test

import (
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/coe/internal/circuitbreaker"
)

var _ = Describe("CircuitBreaker", func() {
	var cb *circuitbreaker.CircuitBreaker

	trip := func() {
		for i := 0; i < 3; i++ {
			cb.RecordFailure()
		}
		Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
	}

	BeforeEach(func() {
		cb = circuitbreaker.NewCircuitBreaker(3, 100*time.Millisecond)
	})

	It("starts closed", func() {
		Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		Expect(cb.Allow()).To(BeTrue())
		Expect(cb.Failures()).To(BeZero())
	})

	It("treats a non-positive threshold as one", func() {
		cb = circuitbreaker.NewCircuitBreaker(0, time.Second)
		cb.RecordFailure()
		Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
	})

	Context("when closed", func() {
		It("stays closed below the threshold", func() {
			cb.RecordFailure()
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Failures()).To(Equal(2))
		})

		It("opens at the threshold", func() {
			trip()
		})

		It("only counts consecutive failures", func() {
			cb.RecordFailure()
			cb.RecordFailure()
			cb.RecordSuccess()
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Failures()).To(Equal(1))
		})
	})

	Context("when open", func() {
		BeforeEach(trip)

		It("rejects requests before the reset timeout", func() {
			time.Sleep(30 * time.Millisecond)
			Expect(cb.Allow()).To(BeFalse())
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})

		It("half-opens after the reset timeout", func() {
			time.Sleep(150 * time.Millisecond)
			Expect(cb.Allow()).To(BeTrue())
			Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
		})
	})

	Context("when half-open", func() {
		BeforeEach(func() {
			trip()
			time.Sleep(150 * time.Millisecond)
			Expect(cb.Allow()).To(BeTrue())
		})

		It("rejects everything else while the trial request is in flight", func() {
			for i := 0; i < 5; i++ {
				Expect(cb.Allow()).To(BeFalse())
			}
			Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
		})

		It("rejects concurrent callers while the trial request is in flight", func() {
			var (
				wg       sync.WaitGroup
				admitted atomic.Int32
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if cb.Allow() {
						admitted.Add(1)
					}
				}()
			}
			wg.Wait()

			Expect(admitted.Load()).To(BeZero())
		})

		It("allows another trial request after a failure and another timeout", func() {
			cb.RecordFailure()
			Expect(cb.Allow()).To(BeFalse())

			time.Sleep(150 * time.Millisecond)
			Expect(cb.Allow()).To(BeTrue())
			Expect(cb.Allow()).To(BeFalse())
		})

		It("closes on success", func() {
			cb.RecordSuccess()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			Expect(cb.Failures()).To(BeZero())
			Expect(cb.Allow()).To(BeTrue())
			Expect(cb.Allow()).To(BeTrue())
		})

		It("reopens on a single failure", func() {
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			Expect(cb.Allow()).To(BeFalse())
		})
	})

	DescribeTable("State text",
		func(s circuitbreaker.State, want string) {
			Expect(s.String()).To(Equal(want))
			text, err := s.MarshalText()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(text)).To(Equal(want))
		},
		Entry("closed", circuitbreaker.StateClosed, "CLOSED"),
		Entry("open", circuitbreaker.StateOpen, "OPEN"),
		Entry("half-open", circuitbreaker.StateHalfOpen, "HALF-OPEN"),
		Entry("unknown", circuitbreaker.State(42), "UNKNOWN"),
	)
})
