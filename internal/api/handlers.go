package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/catalog"
	"github.com/starford/sowilo/internal/checksum"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/noteservice"
	"github.com/starford/sowilo/internal/storage"
)

// Handler holds the read-only catalog route handlers.
type Handler struct {
	cat   *catalog.Catalog
	store *storage.FS
	notes *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(cat *catalog.Catalog, store *storage.FS, notes *noteservice.Service) *Handler {
	return &Handler{cat: cat, store: store, notes: notes}
}

// ListSkills handles GET /api/skills: brief metadata for every skill.
func (h *Handler) ListSkills(w http.ResponseWriter, _ *http.Request) {
	skills := h.cat.Discover()
	briefs := make([]models.Skill, len(skills))
	for i, s := range skills {
		briefs[i] = s.Brief()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"skills": briefs,
		"total":  len(briefs),
	})
}

// GetSkill handles GET /api/skills/{name}. Supports ?include_notes=true
// and conditional requests via an ETag over the serialized skill.
func (h *Handler) GetSkill(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	skill, err := h.cat.Get(name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get skill failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	if r.URL.Query().Get("include_notes") == "true" {
		if dir, _, rerr := h.cat.ResolveDir(name); rerr == nil {
			skill.Body = h.notes.MergeIntoBody(dir, name, skill.Body)
		}
	}

	body, err := json.Marshal(skill)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	etag := `"` + checksum.Sum(body) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Search handles GET /api/search?q=: brief substring matches.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	matches := h.cat.Search(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"results": matches})
}

// ListAssets handles GET /api/skills/{name}/assets.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	dir, _, err := h.cat.ResolveDir(name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	assets, err := h.store.ListAssets(dir, name)
	if err != nil {
		slog.Error("list assets failed", slog.String("name", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": assets})
}
