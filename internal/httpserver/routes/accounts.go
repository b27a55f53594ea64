package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Tryboy869/gitradar/internal/httpserver/deps"
	"github.com/Tryboy869/gitradar/internal/httpserver/handlers"
	"github.com/Tryboy869/gitradar/internal/httpserver/mw"
)

func init() { Register(registerAccounts) }

func registerAccounts(r chi.Router, d deps.Deps) {
	limited := r.With(mw.RateLimit(mw.RateLimitConfig{PerSecond: d.AuthLimit, Burst: d.AuthBurst}))
	limited.Post("/api/auth/register", handlers.Register(d))
	limited.Post("/api/auth/login", handlers.Login(d))

	me := r.With(mw.RequireAuth(d.Accounts))
	me.Get("/api/me/preferences", handlers.GetPreferences(d))
	me.Put("/api/me/preferences", handlers.PutPreferences(d))
}
