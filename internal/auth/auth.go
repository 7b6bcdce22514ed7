// Package auth verifies credentials and issues the signed session tokens
// carried in the userSession cookie or an Authorization header.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mangashelf/apiserver/internal/store"
	"github.com/mangashelf/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	SessionCookie = "userSession"
	TokenCookie   = "userToken"
)

const defaultTokenTTL = 24 * time.Hour

var (
	// ErrInvalidCredentials never says whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
)

// Identity is the minimal record returned by a successful Authorize.
type Identity struct {
	ID    int
	Email string
	Name  string
}

// CurrentUser is the session holder, passed explicitly to services.
type CurrentUser struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// UserLookup is the subset of the user repository auth depends on.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetCredentialsByEmail(ctx context.Context, email string) (types.User, error)
}

// SessionClaims is the JWT payload.
type SessionClaims struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	jwt.RegisteredClaims
}

// Authenticator verifies passwords and signs sessions.
type Authenticator struct {
	users  UserLookup
	secret []byte
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func New(users UserLookup, secret string, ttl time.Duration, log *zap.Logger) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}, nil
}

// TTL is how long an issued session stays valid.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// Authorize checks email and password against the stored hash.
func (a *Authenticator) Authorize(ctx context.Context, email, password string) (Identity, error) {
	email = types.NormalizeEmail(email)
	if email == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}

	user, err := a.users.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, fmt.Errorf("load credentials: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{ID: user.ID, Email: user.Email, Name: user.Name}, nil
}

// IssueSession signs a token for id. The user's current avatar is embedded
// so clients can render it without another lookup.
func (a *Authenticator) IssueSession(ctx context.Context, id Identity) (string, CurrentUser, error) {
	avatar := types.DefaultAvatar
	user, err := a.users.GetByID(ctx, id.ID)
	if err != nil {
		a.log.Warn("avatar lookup failed", zap.Int("user_id", id.ID), zap.Error(err))
	} else if strings.TrimSpace(user.Avatar) != "" {
		avatar = user.Avatar
	}

	now := a.now()
	claims := SessionClaims{
		Email:  id.Email,
		Name:   id.Name,
		Avatar: avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(id.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", CurrentUser{}, fmt.Errorf("sign session: %w", err)
	}
	return token, CurrentUser{ID: id.ID, Email: id.Email, Name: id.Name, Image: avatar}, nil
}

// ParseSession verifies token and returns its holder.
func (a *Authenticator) ParseSession(token string) (CurrentUser, error) {
	claims := SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return CurrentUser{}, ErrInvalidSession
	}

	id, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || id < 1 {
		return CurrentUser{}, ErrInvalidSession
	}
	return CurrentUser{ID: id, Email: claims.Email, Name: claims.Name, Image: claims.Avatar}, nil
}
