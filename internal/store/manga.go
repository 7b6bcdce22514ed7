package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mangashelf/apiserver/types"
)

// MangaRepository handles persistence for locally cached manga.
type MangaRepository struct {
	db *sql.DB
}

func NewMangaRepository(db *sql.DB) *MangaRepository {
	return &MangaRepository{db: db}
}

const mangaColumns = `id, slug, anilist_id, title, description, cover_image, genres, status,
	latest_chapter_number, latest_chapter_release_date, total_chapters, rating, created_at, updated_at`

func scanManga(row rowScanner) (types.Manga, error) {
	var manga types.Manga
	var anilistID sql.NullInt32
	err := row.Scan(
		&manga.ID,
		&manga.Slug,
		&anilistID,
		&manga.Title,
		&manga.Description,
		&manga.CoverImage,
		pq.Array(&manga.Genres),
		&manga.Status,
		&manga.LatestChapter.Number,
		&manga.LatestChapter.ReleaseDate,
		&manga.TotalChapters,
		&manga.Rating,
		&manga.CreatedAt,
		&manga.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Manga{}, ErrNotFound
		}
		return types.Manga{}, err
	}
	if anilistID.Valid {
		id := int(anilistID.Int32)
		manga.AniListID = &id
	}
	if manga.Genres == nil {
		manga.Genres = []string{}
	}
	return manga, nil
}

func (r *MangaRepository) Get(ctx context.Context, id int64) (types.Manga, error) {
	query := `SELECT ` + mangaColumns + ` FROM manga WHERE id = $1`
	return scanManga(r.db.QueryRowContext(ctx, query, id))
}

// ListReleasedSince returns manga whose latest chapter came out at or after
// since, newest release first.
func (r *MangaRepository) ListReleasedSince(ctx context.Context, since time.Time, limit int) ([]types.Manga, error) {
	query := `SELECT ` + mangaColumns + `
		FROM manga
		WHERE latest_chapter_release_date >= $1
		ORDER BY latest_chapter_release_date DESC, created_at DESC
		LIMIT $2`
	return r.list(ctx, query, since, limit)
}

// ListUpdatedSince returns manga updated at or after since, most recent first.
func (r *MangaRepository) ListUpdatedSince(ctx context.Context, since time.Time, limit int) ([]types.Manga, error) {
	query := `SELECT ` + mangaColumns + `
		FROM manga
		WHERE updated_at >= $1
		ORDER BY updated_at DESC
		LIMIT $2`
	return r.list(ctx, query, since, limit)
}

func (r *MangaRepository) list(ctx context.Context, query string, args ...any) ([]types.Manga, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Manga, 0)
	for rows.Next() {
		manga, err := scanManga(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, manga)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpsertByAniListID inserts the record or refreshes the row seeded from the
// same catalog entry.
func (r *MangaRepository) UpsertByAniListID(ctx context.Context, manga types.Manga) (types.Manga, error) {
	if manga.AniListID == nil {
		return types.Manga{}, errors.New("anilist id is required")
	}

	now := time.Now()
	query := `
		INSERT INTO manga (slug, anilist_id, title, description, cover_image, genres, status,
			latest_chapter_number, latest_chapter_release_date, total_chapters, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (anilist_id) DO UPDATE
		SET title = EXCLUDED.title,
			description = EXCLUDED.description,
			cover_image = EXCLUDED.cover_image,
			genres = EXCLUDED.genres,
			status = EXCLUDED.status,
			latest_chapter_number = EXCLUDED.latest_chapter_number,
			latest_chapter_release_date = CASE
				WHEN EXCLUDED.latest_chapter_number <> manga.latest_chapter_number
				THEN EXCLUDED.latest_chapter_release_date
				ELSE manga.latest_chapter_release_date
			END,
			total_chapters = EXCLUDED.total_chapters,
			rating = EXCLUDED.rating,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + mangaColumns
	stored, err := scanManga(r.db.QueryRowContext(
		ctx,
		query,
		manga.Slug,
		*manga.AniListID,
		manga.Title,
		manga.Description,
		manga.CoverImage,
		pq.Array(manga.Genres),
		manga.Status,
		manga.LatestChapter.Number,
		manga.LatestChapter.ReleaseDate,
		manga.TotalChapters,
		manga.Rating,
		now,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return types.Manga{}, ErrConflict
		}
		return types.Manga{}, fmt.Errorf("upsert manga %d: %w", *manga.AniListID, err)
	}
	return stored, nil
}
