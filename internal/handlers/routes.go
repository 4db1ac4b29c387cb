package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter собирает маршруты админки. events может быть nil, тогда
// websocket-лента не подключается.
func NewRouter(h *Handler, events http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/admin", func(r chi.Router) {
		// без авторизации, как и раньше
		r.Get("/", h.DashboardHandler)

		r.Route("/api", func(r chi.Router) {
			r.Get("/health", h.HealthHandler)
			r.Get("/items/bidding", h.GetItemsInBiddingHandler)
			r.Post("/close-bid/{item_id}", h.CloseBiddingHandler)
			r.Get("/stats/items-by-type", h.GetItemsByTypeHandler)
			r.Get("/stats/dashboard", h.GetDashboardStatsHandler)
			if events != nil {
				r.Get("/events", events)
			}
		})
	})

	return r
}
