package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/saga/internal/storyservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// vaultRoot is used to resolve the images folder.
func NewRouter(svc *storyservice.Service, authEnabled bool, token string, sseHandler http.Handler, vaultRoot string) chi.Router {
	h := NewHandler(svc)
	ih := NewImageHandler(vaultRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/kinds", h.Kinds)

	r.Route("/entities", func(r chi.Router) {
		r.Get("/", h.ListEntities)
		r.Post("/", h.CreateEntity)
		r.Get("/{kind}/{name}", h.GetEntity)
		r.Put("/{kind}/{name}", h.UpdateEntity)
		r.Delete("/{kind}/{name}", h.DeleteEntity)
		r.Patch("/{kind}/{name}/frontmatter", h.PatchFrontmatter)
		r.Get("/{kind}/{name}/backlinks", h.Backlinks)
	})

	r.Get("/timeline", h.Timeline)
	r.Post("/dates/parse", h.ParseDate)
	r.Get("/search", h.Search)

	r.Post("/images", ih.Upload)
	r.Get("/images/{filename}", ih.ServeFile)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
