package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"litcite/internal/handlers"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	CiteHandler   *handlers.CiteHandler
	HealthHandler *handlers.HealthHandler
	RunsHandler   *handlers.RunsHandler
	StatsHandler  *handlers.StatsHandler
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/cite", deps.CiteHandler)
		r.Method(http.MethodGet, "/health", deps.HealthHandler)
		r.Method(http.MethodGet, "/stats", deps.StatsHandler)
		r.Get("/runs", deps.RunsHandler.List)
		r.Get("/runs/{id}", deps.RunsHandler.Get)
	})

	return r
}
