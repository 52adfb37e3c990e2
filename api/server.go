/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the wheel frontend
  5. AdminAuth:  JWT bearer tokens, /api/admin only

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: JWT validation
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured. jwtSecret signs
// and validates admin bearer tokens.
func NewRouter(h *Handler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Post("/{id}/requests", h.SubmitRequest)
			r.Post("/{id}/spin", h.SpinWheel)
		})

		// Tournament routes
		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.ListTournaments)
			r.Post("/{id}/join", h.JoinTournament)
		})

		// Public reads
		r.Get("/wheels", h.ListWheels)
		r.Get("/stats", h.GetStats)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuth(jwtSecret))

			r.Get("/requests", h.ListRequests)
			r.Post("/requests/{id}/approve", h.ApproveRequest)
			r.Post("/requests/{id}/reject", h.RejectRequest)
			r.Post("/tournaments", h.CreateTournament)
			r.Post("/tournaments/{id}/status", h.SetTournamentStatus)
			r.Post("/accounts/{id}/block", h.SetBlocked)
		})
	})

	return r
}
