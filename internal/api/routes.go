package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	// Unsubscribe must stay outside /api: it is the link recipients click.
	r.Get("/unsubscribe", h.Unsubscribe)

	r.Route("/api", func(r chi.Router) {
		r.Route("/leads", func(r chi.Router) {
			r.Post("/", h.CreateLead)
			r.Get("/", h.ListLeads)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", h.CreateCampaign)
			r.Get("/", h.ListCampaigns)
			r.Post("/{campaignID}/launch", h.LaunchCampaign)
			r.Post("/{campaignID}/pause", h.PauseCampaign)
			r.Post("/{campaignID}/resume", h.ResumeCampaign)
			r.Get("/{campaignID}/analytics", h.CampaignAnalytics)
		})

		r.Route("/replies", func(r chi.Router) {
			r.Get("/queue", h.ApprovalQueue)
			r.Post("/{replyID}/approve", h.ApproveReply)
			r.Post("/{replyID}/reject", h.RejectReply)
		})

		r.Post("/simulate-reply", h.SimulateReply)
		r.Get("/suppressions", h.ListSuppressions)
	})

	return r
}
