package settings

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers runtime settings routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.ListSettings)
		r.Put("/", h.UpdateSettings)
	})
}
