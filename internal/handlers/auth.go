package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mangashelf/apiserver/internal/auth"
	"github.com/mangashelf/apiserver/internal/services"
	"go.uber.org/zap"
)

// AuthHandler serves registration and the session endpoints.
type AuthHandler struct {
	auth        *auth.Authenticator
	userService *services.UserService
	log         *zap.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authenticator *auth.Authenticator, userService *services.UserService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authenticator, userService: userService, log: log}
}

// AuthRouter registers /auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(RequireAuth).Get("/session", handler.Session)
}

// Sessions attaches the session holder to the request context when a valid
// token is sent. Requests without one pass through anonymously.
func Sessions(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := authenticator.ParseSession(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withCurrentUser(r.Context(), user)))
		})
	}
}

// RequireAuth rejects requests Sessions did not authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Register creates a new account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err, "Error registering user")
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		User:    RegisteredUser{ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

// Login verifies credentials, sets the session cookie and returns the token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity, err := h.auth.Authorize(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to authenticate")
		return
	}

	token, user, err := h.auth.IssueSession(r.Context(), identity)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.TTL() / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// Logout expires every cookie the app sets.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	names := []string{auth.TokenCookie, libraryCookie, auth.SessionCookie}
	cookies := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		cookie := &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
		}
		if err := cookie.Valid(); err != nil {
			h.log.Error("logout cookie rejected", zap.String("cookie", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to log out")
			return
		}
		cookies = append(cookies, cookie)
	}
	for _, cookie := range cookies {
		http.SetCookie(w, cookie)
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Session returns the current session payload.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionResponse{User: *currentUser(r.Context())})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string           `json:"token"`
	User  auth.CurrentUser `json:"user"`
}

type SessionResponse struct {
	User auth.CurrentUser `json:"user"`
}

type RegisteredUser struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type RegisterResponse struct {
	Message string         `json:"message"`
	User    RegisteredUser `json:"user"`
}

// sessionToken reads a bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	cookie, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
