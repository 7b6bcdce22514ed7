package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/mangashelf/apiserver/internal/catalog"
	"github.com/mangashelf/apiserver/types"
	"go.uber.org/zap"
)

// PopularSource pages through the catalog's most popular manga.
type PopularSource interface {
	PopularMedia(ctx context.Context, page int) ([]catalog.Media, bool, error)
}

// MangaUpserter writes catalog records into the local table.
type MangaUpserter interface {
	UpsertByAniListID(ctx context.Context, manga types.Manga) (types.Manga, error)
}

var catalogStatuses = map[string]string{
	"RELEASING": types.MangaStatusOngoing,
	"FINISHED":  types.MangaStatusCompleted,
	"HIATUS":    types.MangaStatusHiatus,
}

// SeedService copies catalog media into the local manga table.
type SeedService struct {
	source PopularSource
	repo   MangaUpserter
	log    *zap.Logger
	now    func() time.Time
}

func NewSeedService(source PopularSource, repo MangaUpserter, log *zap.Logger) *SeedService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SeedService{source: source, repo: repo, log: log, now: time.Now}
}

// SeedResult counts what a seed run did.
type SeedResult struct {
	Upserted int
	Skipped  int
}

// Seed imports up to pages pages of popular media.
func (s *SeedService) Seed(ctx context.Context, pages int) (SeedResult, error) {
	var result SeedResult
	for page := 1; page <= pages; page++ {
		media, hasNext, err := s.source.PopularMedia(ctx, page)
		if err != nil {
			return result, fmt.Errorf("fetch page %d: %w", page, err)
		}
		for _, m := range media {
			manga, ok := MangaFromMedia(m, s.now())
			if !ok {
				result.Skipped++
				continue
			}
			if err := manga.Validate(); err != nil {
				s.log.Debug("skipping invalid media", zap.Int("anilist_id", m.ID), zap.Error(err))
				result.Skipped++
				continue
			}
			if _, err := s.repo.UpsertByAniListID(ctx, manga); err != nil {
				return result, fmt.Errorf("upsert anilist %d: %w", m.ID, err)
			}
			result.Upserted++
		}
		s.log.Info("seeded catalog page", zap.Int("page", page), zap.Int("upserted", result.Upserted))
		if !hasNext {
			break
		}
	}
	return result, nil
}

// MangaFromMedia maps a catalog record onto the local schema. Media with a
// status the local schema has no value for are rejected.
func MangaFromMedia(m catalog.Media, now time.Time) (types.Manga, bool) {
	status, ok := catalogStatuses[m.Status]
	if !ok {
		return types.Manga{}, false
	}

	title := m.Title.Display()
	anilistID := m.ID
	manga := types.Manga{
		Slug:        fmt.Sprintf("%s-%d", slug.Make(title), m.ID),
		AniListID:   &anilistID,
		Title:       title,
		Description: catalog.PlainText(m.Description),
		CoverImage:  m.CoverImage.Fallback(),
		Genres:      []string{},
		Status:      status,
	}
	for _, genre := range m.Genres {
		if types.IsGenre(genre) {
			manga.Genres = append(manga.Genres, genre)
		}
	}
	if m.AverageScore != nil {
		manga.Rating = float64(*m.AverageScore) / 10
	}
	if m.Chapters != nil {
		manga.TotalChapters = *m.Chapters
		manga.LatestChapter.Number = *m.Chapters
	}
	if strings.TrimSpace(manga.Description) == "" {
		manga.Description = title
	}
	manga.ApplyDefaults(now)
	return manga, true
}
