package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/mangashelf/apiserver/internal/storage"
	"go.uber.org/zap"
)

// ObjectReader opens stored uploads.
type ObjectReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// UploadsHandler streams avatars and other public uploads.
type UploadsHandler struct {
	objects ObjectReader
	log     *zap.Logger
}

func NewUploadsHandler(objects ObjectReader, log *zap.Logger) *UploadsHandler {
	return &UploadsHandler{objects: objects, log: log}
}

func UploadsRouter(r chi.Router, handler *UploadsHandler) {
	r.Get("/*", handler.Serve)
}

func (h *UploadsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key, err := storage.CleanKey(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	body, err := h.objects.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		writeServiceError(w, h.log, err, "Error reading file")
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", storage.CacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.log.Debug("upload stream interrupted", zap.String("key", key), zap.Error(err))
	}
}
