package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/mangashelf/apiserver/internal/catalog"
	"github.com/mangashelf/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMangaRoutes(t *testing.T) {
	env := newTestEnv(t)
	released := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	env.manga.released = []types.Manga{{ID: 3, Title: "Fresh", LatestChapter: types.LatestChapter{Number: 12, ReleaseDate: released}, Genres: []string{}}}
	env.manga.updated = []types.Manga{}

	rec := env.do(http.MethodGet, "/api/manga/new-releases", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeBody[[]types.Manga](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "Fresh", items[0].Title)

	rec = env.do(http.MethodGet, "/api/manga/recent-updates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/manga/3", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/manga/404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Manga not found", decodeBody[ErrorResponse](t, rec).Error)

	rec = env.do(http.MethodGet, "/api/manga/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.pages["trending"] = catalog.Page{Page: 1, Items: []catalog.Manga{{ID: 1, Title: "Trending One"}}}
	env.catalog.pages["popular"] = catalog.Page{Page: 1, Items: []catalog.Manga{{ID: 2, Title: "Popular One"}}}
	env.catalog.pages["search"] = catalog.Page{Page: 1, Items: []catalog.Manga{{ID: 3, Title: "Found"}}}

	rec := env.do(http.MethodGet, "/api/catalog/trending?page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Trending One", decodeBody[catalog.Page](t, rec).Items[0].Title)

	rec = env.do(http.MethodGet, "/api/catalog/search?q=found", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "found", env.catalog.lastArg)

	rec = env.do(http.MethodGet, "/api/catalog/discover", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	discover := decodeBody[DiscoverResponse](t, rec)
	assert.Equal(t, "Trending One", discover.Trending.Items[0].Title)
	assert.Equal(t, "Popular One", discover.Popular.Items[0].Title)
}

func TestCatalogRoutes_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.err = errors.Join(catalog.ErrUpstream, errors.New("status 500"))

	for _, target := range []string{"/api/catalog/popular", "/api/catalog/discover", "/api/catalog/newly-added"} {
		rec := env.do(http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code, target)
		assert.Equal(t, "catalog unavailable", decodeBody[ErrorResponse](t, rec).Error)
	}
}

func TestUploads_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/uploads/avatars/missing.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/uploads/../../etc/passwd", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
