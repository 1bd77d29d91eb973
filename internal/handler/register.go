package handler

import (
	"net/http"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/middleware"
)

// Register mounts the relay endpoints on mux. Chat requests are rate limited
// per client IP and size capped; the read-only endpoints are not.
func (h *Handler) Register(mux *http.ServeMux, limiter *middleware.IPRateLimiter) {
	chat := middleware.Chain(http.HandlerFunc(h.handleChat),
		middleware.RateLimit(limiter),
		middleware.BodyLimit(config.MaxRequestBodySize),
	)

	mux.Handle("POST /api/chat", chat)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/models", h.handleModels)
}

// Routes returns the complete relay handler with the shared middleware stack.
func (h *Handler) Routes(limiter *middleware.IPRateLimiter) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux, limiter)

	return middleware.Chain(mux,
		middleware.RequestContext(),
		middleware.Logging(),
		middleware.Recover(),
	)
}
