package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mangashelf/apiserver/internal/auth"
	"github.com/mangashelf/apiserver/internal/catalog"
	"github.com/mangashelf/apiserver/internal/services"
	"github.com/mangashelf/apiserver/internal/store"
	"github.com/mangashelf/apiserver/types"
	"go.uber.org/zap"
)

type contextKey string

const contextUserKey contextKey = "currentUser"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of mutations that only report success.
type MessageResponse struct {
	Message string `json:"message"`
}

func withCurrentUser(ctx context.Context, user auth.CurrentUser) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

// currentUser returns the session holder, or nil for anonymous requests.
func currentUser(ctx context.Context) *auth.CurrentUser {
	user, ok := ctx.Value(contextUserKey).(auth.CurrentUser)
	if !ok {
		return nil
	}
	return &user
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps the error taxonomy onto status codes. Only
// client-facing messages are echoed; anything unexpected is logged and
// answered with fallback.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	var validationErr *types.ValidationError
	var inputErr *services.InputError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &inputErr):
		writeError(w, http.StatusBadRequest, inputErr.Message)
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, auth.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, services.ErrEmailTaken.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict")
	case errors.Is(err, catalog.ErrUpstream):
		log.Warn("catalog request failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, catalog.ErrUpstream.Error())
	default:
		log.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func parsePage(r *http.Request) int {
	page, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("page")))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
