package handler

import (
	"net/http"

	"github.com/set-night/mindchat/internal/domain"
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.HealthStatus{
		Status:           "ok",
		Timestamp:        h.now().UTC(),
		APIKeyConfigured: h.cfg.APIKeyConfigured(),
	})
}
