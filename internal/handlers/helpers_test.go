package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mangashelf/apiserver/internal/auth"
	"github.com/mangashelf/apiserver/internal/catalog"
	"github.com/mangashelf/apiserver/internal/library"
	"github.com/mangashelf/apiserver/internal/services"
	"github.com/mangashelf/apiserver/internal/storage"
	"github.com/mangashelf/apiserver/internal/store"
	"github.com/mangashelf/apiserver/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryUsers struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func (m *memoryUsers) GetByID(ctx context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	u.PasswordHash = ""
	return u, nil
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (types.User, error) {
	u, err := m.GetCredentialsByEmail(ctx, email)
	u.PasswordHash = ""
	return u, err
}

func (m *memoryUsers) GetCredentialsByEmail(ctx context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == types.NormalizeEmail(email) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryUsers) Create(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUsers) UpdateProfile(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	stored.Name, stored.Bio, stored.ReadingGoal, stored.Avatar = user.Name, user.Bio, user.ReadingGoal, user.Avatar
	m.users[user.ID] = stored
	stored.PasswordHash = ""
	return stored, nil
}

type memoryManga struct {
	released []types.Manga
	updated  []types.Manga
}

func (m *memoryManga) Get(ctx context.Context, id int64) (types.Manga, error) {
	for _, item := range append(m.released, m.updated...) {
		if item.ID == id {
			return item, nil
		}
	}
	return types.Manga{}, store.ErrNotFound
}

func (m *memoryManga) ListReleasedSince(ctx context.Context, since time.Time, limit int) ([]types.Manga, error) {
	return m.released, nil
}

func (m *memoryManga) ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]types.Manga, error) {
	return m.updated, nil
}

type fakeCatalog struct {
	pages   map[string]catalog.Page
	err     error
	remote  library.Buckets
	lastArg string
}

func (f *fakeCatalog) get(name string) (catalog.Page, error) {
	if f.err != nil {
		return catalog.Page{}, f.err
	}
	return f.pages[name], nil
}

func (f *fakeCatalog) Trending(ctx context.Context, page int) (catalog.Page, error) {
	return f.get("trending")
}

func (f *fakeCatalog) Popular(ctx context.Context, page int) (catalog.Page, error) {
	return f.get("popular")
}

func (f *fakeCatalog) NewlyAdded(ctx context.Context, page int) (catalog.Page, error) {
	return f.get("newly-added")
}

func (f *fakeCatalog) RecentlyUpdated(ctx context.Context, page int) (catalog.Page, error) {
	return f.get("recently-updated")
}

func (f *fakeCatalog) Search(ctx context.Context, term string, page int) (catalog.Page, error) {
	f.lastArg = term
	return f.get("search")
}

func (f *fakeCatalog) UserList(ctx context.Context, userID int) (library.Buckets, error) {
	if f.err != nil {
		return library.Buckets{}, f.err
	}
	return f.remote, nil
}

type testEnv struct {
	router  *chi.Mux
	auth    *auth.Authenticator
	users   *memoryUsers
	manga   *memoryManga
	catalog *fakeCatalog
	uploads string
	objects *storage.Storage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()

	users := &memoryUsers{users: map[int]types.User{}}
	mangaRepo := &memoryManga{}
	cat := &fakeCatalog{pages: map[string]catalog.Page{}, remote: library.NewBuckets()}

	uploads := t.TempDir()
	local, err := storage.NewLocalClient(uploads)
	require.NoError(t, err)
	objects := storage.NewStorage(local)

	authenticator, err := auth.New(users, "handler-test-secret", time.Hour, log)
	require.NoError(t, err)

	userService := services.NewUserService(users, objects, nil, log)
	libraryService := services.NewLibraryService(nil)
	mangaService := services.NewMangaService(mangaRepo)

	router := chi.NewRouter()
	router.Use(Sessions(authenticator))
	router.Get("/healthz", Healthz)
	router.Route("/api", func(r chi.Router) {
		authHandler := NewAuthHandler(authenticator, userService, log)
		r.Post("/register", authHandler.Register)
		r.Route("/auth", func(r chi.Router) { AuthRouter(r, authHandler) })
		r.Route("/profile", func(r chi.Router) { ProfileRouter(r, NewProfileHandler(userService, log)) })
		r.Route("/library", func(r chi.Router) {
			LibraryRouter(r, NewLibraryHandler(libraryService, library.NewAggregator(cat, log), log))
		})
		r.Route("/manga", func(r chi.Router) { MangaRouter(r, NewMangaHandler(mangaService, log)) })
		r.Route("/catalog", func(r chi.Router) { CatalogRouter(r, NewCatalogHandler(cat, log)) })
	})
	router.Route("/uploads", func(r chi.Router) { UploadsRouter(r, NewUploadsHandler(objects, log)) })

	return &testEnv{
		router:  router,
		auth:    authenticator,
		users:   users,
		manga:   mangaRepo,
		catalog: cat,
		uploads: uploads,
		objects: objects,
	}
}

// signIn creates a user directly in the fake store and returns a bearer token.
func (e *testEnv) signIn(t *testing.T, name, email string) (int, string) {
	t.Helper()
	user, err := e.users.Create(context.Background(), types.User{Name: name, Email: email, Avatar: types.DefaultAvatar, ReadingGoal: 50})
	require.NoError(t, err)
	token, _, err := e.auth.IssueSession(context.Background(), auth.Identity{ID: user.ID, Email: email, Name: name})
	require.NoError(t, err)
	return user.ID, token
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookies(cookies ...*http.Cookie) requestOption {
	return func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

func withContentType(ct string) requestOption {
	return func(r *http.Request) { r.Header.Set("Content-Type", ct) }
}

func (e *testEnv) do(method, target string, body io.Reader, opts ...requestOption) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(method, target string, payload any, opts ...requestOption) *httptest.ResponseRecorder {
	var body io.Reader = http.NoBody
	switch p := payload.(type) {
	case nil:
	case string:
		body = strings.NewReader(p)
	default:
		data, _ := json.Marshal(p)
		body = bytes.NewReader(data)
	}
	return e.do(method, target, body, append([]requestOption{withContentType("application/json")}, opts...)...)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
