package handler

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
)

type sortType string

const (
	sortPriceAsc  sortType = "price_asc"
	sortPriceDesc sortType = "price_desc"
	sortContext   sortType = "context"
	sortName      sortType = "name"
)

type modelsResponse struct {
	Default string           `json:"default"`
	Models  []domain.AIModel `json:"models"`
}

// handleModels lists provider models. Query parameters: q (substring
// search), sort, free=1 and vision=1 filters.
func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	allModels, err := h.openRouter.ListModels(r.Context())
	if err != nil {
		slog.Error("list models", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Failed to load models")
		return
	}

	q := r.URL.Query()
	filtered := filterModels(allModels, q.Get("q"), q.Get("free") == "1", q.Get("vision") == "1")
	sortModels(filtered, sortType(q.Get("sort")))

	writeJSON(w, http.StatusOK, modelsResponse{
		Default: h.openRouter.Model(),
		Models:  filtered,
	})
}

func filterModels(aiModels []domain.AIModel, query string, freeOnly, visionOnly bool) []domain.AIModel {
	query = strings.ToLower(strings.TrimSpace(query))
	filtered := make([]domain.AIModel, 0, len(aiModels))
	for _, m := range aiModels {
		if freeOnly && !m.IsFree() {
			continue
		}
		if visionOnly && !m.Capabilities.Vision {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(m.Name), query) &&
			!strings.Contains(strings.ToLower(m.ID), query) &&
			!strings.Contains(strings.ToLower(m.Description), query) {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered
}

func sortModels(aiModels []domain.AIModel, s sortType) {
	switch s {
	case sortPriceAsc:
		slices.SortStableFunc(aiModels, func(a, b domain.AIModel) int {
			return a.PromptPrice.Add(a.CompletionPrice).Cmp(b.PromptPrice.Add(b.CompletionPrice))
		})
	case sortPriceDesc:
		slices.SortStableFunc(aiModels, func(a, b domain.AIModel) int {
			return b.PromptPrice.Add(b.CompletionPrice).Cmp(a.PromptPrice.Add(a.CompletionPrice))
		})
	case sortContext:
		slices.SortStableFunc(aiModels, func(a, b domain.AIModel) int {
			return b.ContextLength - a.ContextLength
		})
	case sortName:
		slices.SortStableFunc(aiModels, func(a, b domain.AIModel) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	}
}
