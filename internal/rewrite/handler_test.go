package rewrite_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/coe/internal/rewrite"
)

type recordingForwarder struct {
	targets []string
}

func (f *recordingForwarder) Forward(w http.ResponseWriter, r *http.Request, target *url.URL) {
	f.targets = append(f.targets, target.String())
	w.WriteHeader(http.StatusAccepted)
}

var _ = Describe("Handler", func() {
	var (
		forwarder *recordingForwarder
		seen      []string
		handler   http.Handler
	)

	BeforeEach(func() {
		forwarder = &recordingForwarder{}
		seen = nil

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		})

		table, err := rewrite.New(rewrite.DefaultRules("", ""))
		Expect(err).NotTo(HaveOccurred())

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler = rewrite.NewHandler(logger, table, forwarder, next)
	})

	It("serves internal aliases from the application", func() {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(seen).To(Equal([]string{"/home"}))
		Expect(forwarder.targets).To(BeEmpty())
	})

	It("passes unmatched requests through untouched", func() {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

		Expect(seen).To(Equal([]string{"/api/users"}))
		Expect(forwarder.targets).To(BeEmpty())
	})

	It("forwards external destinations with the original query", func() {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest/flags?v=2&ip=1", nil))

		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(seen).To(BeEmpty())
		Expect(forwarder.targets).To(Equal([]string{"https://eu.i.posthog.com/flags?v=2&ip=1"}))
	})

	It("forwards tag manager requests", func() {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gm?id=GTM-XXXX", nil))

		Expect(forwarder.targets).To(Equal([]string{"https://www.googletagmanager.com/gtm.js?id=GTM-XXXX"}))
	})
})
