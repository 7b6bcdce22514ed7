package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/mangashelf/apiserver/internal/store"
	"github.com/mangashelf/apiserver/types"
)

type memoryUsers struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{nextID: 1, users: map[int]types.User{}}
}

func (m *memoryUsers) GetByID(ctx context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (types.User, error) {
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
	user.ID = m.nextID
	m.nextID++
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
	stored.Name = user.Name
	stored.Bio = user.Bio
	stored.ReadingGoal = user.ReadingGoal
	stored.Avatar = user.Avatar
	m.users[user.ID] = stored
	return stored, nil
}

type memoryAvatars struct {
	objects map[string][]byte
	deleted []string
	err     error
}

func (m *memoryAvatars) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = buf.Bytes()
	return nil
}

func (m *memoryAvatars) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type publishedEvent struct {
	Type    string
	UserID  int
	Payload any
}

type recordingPublisher struct {
	events []publishedEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, eventType string, userID int, payload any) {
	r.events = append(r.events, publishedEvent{Type: eventType, UserID: userID, Payload: payload})
}

type memoryManga struct {
	items []types.Manga
	err   error
}

func (m *memoryManga) Get(ctx context.Context, id int64) (types.Manga, error) {
	for _, item := range m.items {
		if item.ID == id {
			return item, nil
		}
	}
	return types.Manga{}, store.ErrNotFound
}

// The filters mirror the SQL in store.MangaRepository.
func (m *memoryManga) ListReleasedSince(ctx context.Context, since time.Time, limit int) ([]types.Manga, error) {
	return m.list(since, limit, func(item types.Manga) time.Time { return item.LatestChapter.ReleaseDate })
}

func (m *memoryManga) ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]types.Manga, error) {
	return m.list(since, limit, func(item types.Manga) time.Time { return item.UpdatedAt })
}

func (m *memoryManga) list(since time.Time, limit int, key func(types.Manga) time.Time) ([]types.Manga, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []types.Manga{}
	for _, item := range m.items {
		if !key(item).Before(since) {
			out = append(out, item)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && key(out[j]).After(key(out[j-1])); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var errBoom = errors.New("boom")
