package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mangashelf/apiserver/internal/catalog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CatalogSource is the subset of catalog.Client the handlers call.
type CatalogSource interface {
	Trending(ctx context.Context, page int) (catalog.Page, error)
	Popular(ctx context.Context, page int) (catalog.Page, error)
	NewlyAdded(ctx context.Context, page int) (catalog.Page, error)
	RecentlyUpdated(ctx context.Context, page int) (catalog.Page, error)
	Search(ctx context.Context, term string, page int) (catalog.Page, error)
}

// CatalogHandler proxies browse and search queries to the catalog.
type CatalogHandler struct {
	source CatalogSource
	log    *zap.Logger
}

func NewCatalogHandler(source CatalogSource, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{source: source, log: log}
}

func CatalogRouter(r chi.Router, handler *CatalogHandler) {
	r.Get("/trending", handler.listing(handler.source.Trending))
	r.Get("/popular", handler.listing(handler.source.Popular))
	r.Get("/newly-added", handler.listing(handler.source.NewlyAdded))
	r.Get("/recently-updated", handler.listing(handler.source.RecentlyUpdated))
	r.Get("/search", handler.Search)
	r.Get("/discover", handler.Discover)
}

func (h *CatalogHandler) listing(fetch func(context.Context, int) (catalog.Page, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := fetch(r.Context(), parsePage(r))
		if err != nil {
			writeServiceError(w, h.log, err, "Error fetching catalog")
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := h.source.Search(r.Context(), r.URL.Query().Get("q"), parsePage(r))
	if err != nil {
		writeServiceError(w, h.log, err, "Error searching catalog")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type DiscoverResponse struct {
	Trending catalog.Page `json:"trending"`
	Popular  catalog.Page `json:"popular"`
}

// Discover loads the trending and popular first pages together.
func (h *CatalogHandler) Discover(w http.ResponseWriter, r *http.Request) {
	var resp DiscoverResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		page, err := h.source.Trending(ctx, 1)
		resp.Trending = page
		return err
	})
	g.Go(func() error {
		page, err := h.source.Popular(ctx, 1)
		resp.Popular = page
		return err
	})
	if err := g.Wait(); err != nil {
		writeServiceError(w, h.log, err, "Error fetching catalog")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
