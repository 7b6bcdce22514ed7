package services

import (
	"context"
	"time"

	"github.com/mangashelf/apiserver/types"
)

const (
	newReleasesWindow   = 7 * 24 * time.Hour
	recentUpdatesWindow = 30 * 24 * time.Hour
	releaseListLimit    = 10
)

// MangaRepository defines read operations on the local manga table.
type MangaRepository interface {
	Get(ctx context.Context, id int64) (types.Manga, error)
	ListReleasedSince(ctx context.Context, since time.Time, limit int) ([]types.Manga, error)
	ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]types.Manga, error)
}

// MangaService answers the release and update queries.
type MangaService struct {
	repo MangaRepository
	now  func() time.Time
}

func NewMangaService(repo MangaRepository) *MangaService {
	return &MangaService{repo: repo, now: time.Now}
}

func (s *MangaService) Get(ctx context.Context, id int64) (types.Manga, error) {
	return s.repo.Get(ctx, id)
}

// NewReleases returns up to 10 manga with a chapter out in the last 7 days,
// newest first.
func (s *MangaService) NewReleases(ctx context.Context) ([]types.Manga, error) {
	return s.repo.ListReleasedSince(ctx, s.now().Add(-newReleasesWindow), releaseListLimit)
}

// RecentUpdates returns up to 10 manga updated in the last 30 days.
func (s *MangaService) RecentUpdates(ctx context.Context) ([]types.Manga, error) {
	return s.repo.ListUpdatedSince(ctx, s.now().Add(-recentUpdatesWindow), releaseListLimit)
}
