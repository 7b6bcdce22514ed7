package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mangashelf/apiserver/internal/library"
	"github.com/mangashelf/apiserver/internal/services"
	"github.com/mangashelf/apiserver/types"
	"go.uber.org/zap"
)

const (
	libraryCookie       = "userLibrary"
	libraryCookieMaxAge = 30 * 24 * time.Hour
)

// LibraryHandler serves the cookie-backed reading list.
type LibraryHandler struct {
	libraryService *services.LibraryService
	aggregator     *library.Aggregator
	log            *zap.Logger
}

func NewLibraryHandler(libraryService *services.LibraryService, aggregator *library.Aggregator, log *zap.Logger) *LibraryHandler {
	return &LibraryHandler{libraryService: libraryService, aggregator: aggregator, log: log}
}

// LibraryRouter registers /library routes. A session is optional.
func LibraryRouter(r chi.Router, handler *LibraryHandler) {
	r.Get("/", handler.GetLibrary)
	r.Get("/add", handler.GetLibrary)
	r.Post("/add", handler.AddEntry)
	r.Get("/merged", handler.Merged)
}

type AddEntryResponse struct {
	Message string             `json:"message"`
	Manga   types.LibraryEntry `json:"manga"`
}

// AddEntry inserts or updates one entry and rewrites the cookie.
func (h *LibraryHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var entry types.LibraryEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid manga data")
		return
	}

	doc := h.readLibrary(r)
	doc, _, err := h.libraryService.Save(r.Context(), currentUser(r.Context()), doc, entry)
	if err != nil {
		writeServiceError(w, h.log, err, "Error adding manga to library")
		return
	}

	if err := writeLibraryCookie(w, doc); err != nil {
		writeServiceError(w, h.log, err, "Error adding manga to library")
		return
	}
	writeJSON(w, http.StatusOK, AddEntryResponse{Message: "Manga added to library successfully", Manga: entry})
}

// GetLibrary returns the cookie document, optionally narrowed by ?section=.
func (h *LibraryHandler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	doc := h.readLibrary(r)
	section := strings.TrimSpace(r.URL.Query().Get("section"))
	writeJSON(w, http.StatusOK, h.libraryService.Section(doc, section))
}

// Merged combines the catalog list of ?userId= with the cookie list.
func (h *LibraryHandler) Merged(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var remoteUserID int
	if raw := strings.TrimSpace(query.Get("userId")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			writeError(w, http.StatusBadRequest, "Invalid userId")
			return
		}
		remoteUserID = id
	}

	local := func(context.Context) ([]types.LibraryEntry, error) {
		doc, err := decodeLibraryCookie(r)
		return doc.Manga, err
	}
	merged := h.aggregator.Aggregate(r.Context(), remoteUserID, local)
	merged = library.Filter(merged, query.Get("q"))
	if bucket, ok := types.ParseBucket(query.Get("section")); ok {
		merged = merged.Only(bucket)
	}
	writeJSON(w, http.StatusOK, merged)
}

// readLibrary treats a missing or corrupt cookie as an empty library.
func (h *LibraryHandler) readLibrary(r *http.Request) types.LibraryDocument {
	doc, err := decodeLibraryCookie(r)
	if err != nil {
		h.log.Warn("discarding unreadable library cookie", zap.Error(err))
		return types.LibraryDocument{Manga: []types.LibraryEntry{}}
	}
	return doc
}

func decodeLibraryCookie(r *http.Request) (types.LibraryDocument, error) {
	empty := types.LibraryDocument{Manga: []types.LibraryEntry{}}
	cookie, err := r.Cookie(libraryCookie)
	if err != nil || cookie.Value == "" {
		return empty, nil
	}

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		raw = cookie.Value
	}
	var doc types.LibraryDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return empty, fmt.Errorf("decode library cookie: %w", err)
	}
	if doc.Manga == nil {
		doc.Manga = []types.LibraryEntry{}
	}
	return doc, nil
}

// writeLibraryCookie stores doc as URL-escaped JSON so it survives cookie
// value sanitizing.
func writeLibraryCookie(w http.ResponseWriter, doc types.LibraryDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode library cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     libraryCookie,
		Value:    url.QueryEscape(string(data)),
		Path:     "/",
		MaxAge:   int(libraryCookieMaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}
