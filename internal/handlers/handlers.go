package handlers

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"ewaste/web"
)

// Handler оборачивает хранилище и сервис закрытия торгов
type Handler struct {
	Store  StorageInterface
	Closer BidCloser
	// Assets - файлы дашборда, по умолчанию встроенные в бинарник
	Assets fs.FS
	// ExposeErrors добавляет текст ошибки в ответы 500 (только для development)
	ExposeErrors bool
}

// NewHandler создает новый Handler
func NewHandler(store StorageInterface, closer BidCloser) *Handler {
	return &Handler{
		Store:  store,
		Closer: closer,
		Assets: web.Admin,
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError пишет {success:false, message[, error]}
func (h *Handler) respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Success: false, Message: message}
	if err != nil && h.ExposeErrors {
		resp.Error = err.Error()
	}
	respondJSON(w, status, resp)
}

// DashboardHandler отдает HTML дашборда админки
func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(h.Assets, web.DashboardPath)
	if err != nil {
		slog.Error("error loading admin dashboard", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Error loading admin dashboard", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

var endpoints = []string{
	"GET /admin - Admin dashboard",
	"GET /admin/api/items/bidding - Get items in bidding",
	"POST /admin/api/close-bid/{item_id} - Close bidding for item",
	"GET /admin/api/stats/items-by-type - Get items by type stats",
	"GET /admin/api/stats/dashboard - Get dashboard stats",
	"GET /admin/api/events - Closed bid feed (websocket)",
}

// HealthHandler отвечает на GET /admin/api/health.
// Если хранилище недоступно, возвращает 503.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		h.respondError(w, http.StatusServiceUnavailable, "Database is unreachable", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Admin API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"endpoints": endpoints,
	})
}
