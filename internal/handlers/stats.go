package handlers

import (
	"log/slog"
	"net/http"
)

// GetItemsByTypeHandler - количество единиц по типам для круговой диаграммы
func (h *Handler) GetItemsByTypeHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.ItemsByType(r.Context())
	if err != nil {
		slog.Error("error fetching items by type", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Error fetching statistics", err)
		return
	}

	var total int64
	for _, s := range stats {
		total += s.Count
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
		"total":   total,
	})
}

func (h *Handler) GetDashboardStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.DashboardStats(r.Context())
	if err != nil {
		slog.Error("error fetching dashboard stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Error fetching dashboard statistics", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
	})
}
