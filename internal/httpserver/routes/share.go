package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/linkstash/linkstash/internal/httpserver/deps"
	"github.com/linkstash/linkstash/internal/httpserver/handlers"
	"github.com/linkstash/linkstash/internal/httpserver/mw"
)

func init() { Register(registerShare) }

func registerShare(r chi.Router, d deps.Deps) {
	// Share ingress is reachable from outside the app, so it gets a
	// per-IP budget on top of the usual guards.
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             30,
		RefillPerIPPerMin: 60,
		MaxEntries:        10_000,
		TrustProxy:        d.TrustProxy,
	})

	r.With(limit, mw.EnforceHost(d.AllowedHosts, d.Logger), mw.RequireOwner()).Route("/share", func(r chi.Router) {
		r.Get("/", handlers.ShareIngress(d))
		r.Post("/", handlers.ShareIngress(d))
		r.Get("/pending", handlers.SharePending(d))
		r.Post("/consume", handlers.ShareConsume(d))
	})
}
