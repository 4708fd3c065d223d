package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router собирает chi router со всеми маршрутами API.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		Recovery(h.logger),
		Logging(h.logger),
		cors.Handler(cors.Options{
			AllowedOrigins: h.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		NotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		MethodNotAllowed(w)
	})

	r.Get("/api/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Leads
		r.Get("/leads", h.ListLeads)
		r.Delete("/leads", h.DeleteAllLeads)
		r.Post("/leads/bulk", h.ImportLeads)
		r.Get("/leads/{id}", h.GetLead)
		r.Put("/leads/{id}/status", h.SetLeadStatus)
		r.Delete("/leads/{id}", h.DeleteLead)

		r.Post("/test-lead-email", h.TestLeadEmail)

		// Passes
		r.Post("/passes", h.RunPass)
		r.Get("/passes/last", h.LastPass)
	})

	return r
}
