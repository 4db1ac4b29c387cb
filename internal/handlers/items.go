package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"ewaste/internal/bidding"
	"ewaste/models"

	"github.com/go-chi/chi/v5"
)

// GetItemsInBiddingHandler отвечает на GET /admin/api/items/bidding
func (h *Handler) GetItemsInBiddingHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListBiddingItems(r.Context())
	if err != nil {
		slog.Error("error fetching bidding items", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Error fetching bidding items", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"items":   items,
		"count":   len(items),
	})
}

type closeBiddingResponse struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message"`
	Item         models.ClosedItem `json:"item"`
	WinningBid   models.WinningBid `json:"winningBid"`
	RecyclerName string            `json:"recyclerName"`
}

// CloseBiddingHandler отвечает на POST /admin/api/close-bid/{item_id}
func (h *Handler) CloseBiddingHandler(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "item_id")
	// chi отдает сырой сегмент, если в пути есть экранированные символы (EW%2F2024%2F1)
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(itemID)
		if err != nil {
			h.respondError(w, http.StatusNotFound, "Item not found or not in bidding status", nil)
			return
		}
		itemID = decoded
	}

	res, err := h.Closer.CloseBidding(r.Context(), itemID)
	switch {
	case errors.Is(err, bidding.ErrItemNotEligible):
		h.respondError(w, http.StatusNotFound, "Item not found or not in bidding status", nil)
		return
	case errors.Is(err, bidding.ErrNoBidsFound):
		h.respondError(w, http.StatusBadRequest, "No bids found for this item", nil)
		return
	case err != nil:
		slog.Error("error closing bidding", "item", itemID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Error closing bidding", err)
		return
	}

	respondJSON(w, http.StatusOK, closeBiddingResponse{
		Success:      true,
		Message:      "Bidding closed successfully",
		Item:         res.Item,
		WinningBid:   res.WinningBid,
		RecyclerName: res.WinningBid.RecyclerName,
	})
}
