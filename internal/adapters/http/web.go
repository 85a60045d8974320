package web

import (
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"noticeboard/internal/adapters/http/middleware"
	"noticeboard/internal/adapters/metrics"
)

// Options carries everything NewMux needs to wire the app.
type Options struct {
	Sessions    *middleware.SessionStore
	Metrics     *metrics.Metrics
	CSRF        middleware.CSRFOptions
	RateLimiter *middleware.RateLimiter
	SlowRequest time.Duration
}

// Handler serves the notice board pages and API.
type Handler struct {
	sessions    *middleware.SessionStore
	metrics     *metrics.Metrics
	draftSchema *jsonschema.Schema
}

// NewHandler builds a Handler.
// PRE: sessions and m are non-nil
func NewHandler(sessions *middleware.SessionStore, m *metrics.Metrics) *Handler {
	return &Handler{
		sessions:    sessions,
		metrics:     m,
		draftSchema: mustCompileDraftSchema(),
	}
}

// Routes registers every route on a fresh ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleBoardPage)
	mux.HandleFunc("POST /notices", h.handleAddNotice)
	mux.HandleFunc("POST /notices/{id}/pin", h.handlePinNotice)
	mux.HandleFunc("POST /notices/{id}/delete", h.handleDeleteNotice)
	mux.HandleFunc("POST /reset", h.handleResetBoard)

	mux.HandleFunc("GET /api/notices", h.handleListNotices)
	mux.HandleFunc("POST /api/notices", h.handleCreateNotice)
	mux.HandleFunc("GET /api/notices/{id}", h.handleGetNotice)
	mux.HandleFunc("POST /api/notices/{id}/pin", h.handleTogglePinAPI)
	mux.HandleFunc("DELETE /api/notices/{id}", h.handleDeleteNoticeAPI)

	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("GET /metrics", h.metrics.Handler())
	return mux
}

// NewMux wires HTTP handlers for the app.
func NewMux(opts Options) http.Handler {
	h := NewHandler(opts.Sessions, opts.Metrics)

	limiter := opts.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(10, time.Second)
	}

	// Outermost last: Timing -> Compress -> SecurityHeaders -> RateLimit -> Sessions -> CSRF -> RoutePattern -> Mux
	return middleware.Chain(h.Routes(),
		middleware.RoutePattern,
		middleware.CSRF(opts.CSRF),
		middleware.Sessions(opts.Sessions),
		middleware.RateLimit(limiter),
		middleware.SecurityHeaders,
		middleware.Compress,
		middleware.Timing(opts.Metrics, opts.SlowRequest),
	)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
