package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mangashelf/apiserver/internal/services"
	"github.com/mangashelf/apiserver/internal/store"
	"go.uber.org/zap"
)

// MangaHandler serves the locally cached manga table.
type MangaHandler struct {
	mangaService *services.MangaService
	log          *zap.Logger
}

func NewMangaHandler(mangaService *services.MangaService, log *zap.Logger) *MangaHandler {
	return &MangaHandler{mangaService: mangaService, log: log}
}

func MangaRouter(r chi.Router, handler *MangaHandler) {
	r.Get("/new-releases", handler.NewReleases)
	r.Get("/recent-updates", handler.RecentUpdates)
	r.Get("/{mangaID}", handler.GetManga)
}

func (h *MangaHandler) NewReleases(w http.ResponseWriter, r *http.Request) {
	items, err := h.mangaService.NewReleases(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Error fetching new releases")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MangaHandler) RecentUpdates(w http.ResponseWriter, r *http.Request) {
	items, err := h.mangaService.RecentUpdates(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Error fetching recent updates")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MangaHandler) GetManga(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "mangaID"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "Invalid manga id")
		return
	}
	manga, err := h.mangaService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Manga not found")
			return
		}
		writeServiceError(w, h.log, err, "Error fetching manga")
		return
	}
	writeJSON(w, http.StatusOK, manga)
}
