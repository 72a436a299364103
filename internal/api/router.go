package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/noteservice"
	"github.com/starford/sowilo/internal/storage"
)

// NewRouter creates a chi router with the read-only catalog routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(cat *catalog.Catalog, store *storage.FS, notes *noteservice.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(cat, store, notes)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/skills", h.ListSkills)
	r.Get("/skills/{name}", h.GetSkill)
	r.Get("/skills/{name}/assets", h.ListAssets)
	r.Get("/search", h.Search)

	return r
}
