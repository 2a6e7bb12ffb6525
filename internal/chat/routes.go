package chat

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api/v1/chat", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/messages", h.SendMessage)
		r.Post("/{id}/close", h.Close)
		r.Post("/{id}/reopen", h.Reopen)
		r.Get("/{id}/history", h.History)
	})
	r.Get("/api/v1/cars/{carID}/history", h.VehicleHistory)
}
