package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/linkstash/linkstash/internal/httpserver/deps"
	"github.com/linkstash/linkstash/internal/httpserver/handlers"
	"github.com/linkstash/linkstash/internal/httpserver/mw"
)

func init() { Register(registerLinks) }

func registerLinks(r chi.Router, d deps.Deps) {
	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), mw.RequireOwner()).Route("/links", func(r chi.Router) {
		r.Post("/", handlers.CreateLink(d))
		r.Get("/", handlers.ListLinks(d))
		r.Get("/window", handlers.WindowSearch(d))
		r.Patch("/{id}", handlers.PatchLink(d))
		r.Delete("/{id}", handlers.DeleteLink(d))
		r.Post("/{id}/open", handlers.OpenLink(d))
		r.Post("/{id}/metadata", handlers.RefreshMetadata(d))
	})
}
