package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Tryboy869/gitradar/internal/httpserver/deps"
	"github.com/Tryboy869/gitradar/internal/httpserver/handlers"
	"github.com/Tryboy869/gitradar/internal/httpserver/mw"
)

func init() { Register(registerCatalog) }

func registerCatalog(r chi.Router, d deps.Deps) {
	r.Get("/api/repositories", handlers.ListRepositories(d))
	r.Get("/api/repositories/{externalID}", handlers.GetRepository(d))
	r.Get("/api/categories", handlers.Categories(d))
	r.With(mw.RequireAuth(d.Accounts)).Get("/api/recommendations", handlers.Recommendations(d))
}
