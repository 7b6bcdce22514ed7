package handlers

import (
	"net/http"
	"testing"

	"github.com/mangashelf/apiserver/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(http.MethodPost, "/api/register", map[string]string{
		"name": "Rin", "email": "Rin@Example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[RegisterResponse](t, rec)
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.Equal(t, RegisteredUser{ID: 1, Name: "Rin", Email: "rin@example.com"}, resp.User)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.doJSON(http.MethodPost, "/api/register", map[string]string{
		"name": "Rin again", "email": "rin@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User already exists", decodeBody[ErrorResponse](t, rec).Error)
}

func TestRegister_BadInput(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(http.MethodPost, "/api/register", map[string]string{"name": "Rin", "email": "nope", "password": "hunter22"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide a valid email", decodeBody[ErrorResponse](t, rec).Error)

	rec = env.doJSON(http.MethodPost, "/api/register", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginAndSession(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doJSON(http.MethodPost, "/api/register", map[string]string{"name": "Rin", "email": "rin@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.doJSON(http.MethodPost, "/api/auth/login", LoginRequest{Email: "rin@example.com", Password: "hunter22"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decodeBody[LoginResponse](t, rec)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, auth.CurrentUser{ID: 1, Email: "rin@example.com", Name: "Rin", Image: "/default-avatar.png"}, login.User)

	cookie := responseCookie(rec, auth.SessionCookie)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, login.Token, cookie.Value)

	rec = env.do(http.MethodGet, "/api/auth/session", nil, withCookies(cookie))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, login.User, decodeBody[SessionResponse](t, rec).User)

	rec = env.do(http.MethodGet, "/api/auth/session", nil, withBearer(login.Token))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(http.MethodPost, "/api/register", map[string]string{"name": "Rin", "email": "rin@example.com", "password": "hunter22"})

	for _, req := range []LoginRequest{
		{Email: "rin@example.com", Password: "wrong-password"},
		{Email: "ghost@example.com", Password: "hunter22"},
	} {
		rec := env.doJSON(http.MethodPost, "/api/auth/login", req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid credentials", decodeBody[ErrorResponse](t, rec).Error)
		assert.Nil(t, responseCookie(rec, auth.SessionCookie))
	}
}

func TestSession_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decodeBody[ErrorResponse](t, rec).Error)

	rec = env.do(http.MethodGet, "/api/auth/session", nil, withBearer("forged.token.value"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ExpiresCookies(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", decodeBody[MessageResponse](t, rec).Message)

	for _, name := range []string{"userToken", "userLibrary", "userSession"} {
		cookie := responseCookie(rec, name)
		require.NotNil(t, cookie, name)
		assert.Empty(t, cookie.Value)
		assert.Equal(t, "/", cookie.Path)
		assert.Less(t, cookie.MaxAge, 0)
	}
}
