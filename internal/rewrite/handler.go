package rewrite

import (
	"log/slog"
	"net/http"
	"net/url"
)

// Forwarder sends a request to an absolute URL on an external host.
type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, target *url.URL)
}

// Handler applies the table in front of the application handler. Internal
// destinations are served by next with a rewritten path, external ones go
// through the forwarder, and unmatched requests reach next untouched.
type Handler struct {
	logger    *slog.Logger
	table     *Table
	forwarder Forwarder
	next      http.Handler
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	match, ok := h.table.Resolve(r.URL.Path)
	if !ok {
		h.next.ServeHTTP(w, r)
		return
	}

	if !match.External {
		h.logger.Debug("Rewriting request",
			slog.String("path", r.URL.Path),
			slog.String("destination", match.Destination))

		h.next.ServeHTTP(w, withPath(r, match.Destination))
		return
	}

	target, err := url.Parse(match.Destination)
	if err != nil {
		h.logger.Error("Invalid rewrite destination",
			slog.String("destination", match.Destination),
			slog.Any("err", err))
		http.Error(w, "Bad gateway", http.StatusBadGateway)
		return
	}
	if r.URL.RawQuery != "" {
		if target.RawQuery == "" {
			target.RawQuery = r.URL.RawQuery
		} else {
			target.RawQuery += "&" + r.URL.RawQuery
		}
	}

	h.logger.Debug("Proxying request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("target", target.String()))

	h.forwarder.Forward(w, r, target)
}

func withPath(r *http.Request, path string) *http.Request {
	r2 := new(http.Request)
	*r2 = *r
	r2.URL = new(url.URL)
	*r2.URL = *r.URL
	r2.URL.Path = path
	r2.URL.RawPath = ""
	return r2
}

// NewHandler wraps next with the rewrite table.
func NewHandler(logger *slog.Logger, table *Table, forwarder Forwarder, next http.Handler) *Handler {
	return &Handler{
		logger:    logger,
		table:     table,
		forwarder: forwarder,
		next:      next,
	}
}
