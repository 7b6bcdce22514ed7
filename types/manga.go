package types

import (
	"strings"
	"time"
)

// DefaultMangaCover is used when neither the catalog nor the image lookup
// provide a cover.
const DefaultMangaCover = "/default-manga-cover.jpg"

const (
	MangaStatusOngoing   = "Ongoing"
	MangaStatusCompleted = "Completed"
	MangaStatusHiatus    = "Hiatus"
)

// Genres is the fixed vocabulary accepted for local manga records.
var Genres = []string{
	"Action", "Adventure", "Comedy", "Drama",
	"Fantasy", "Horror", "Mystery",
	"Romance", "Sci-Fi", "Slice of Life",
	"Sports", "Supernatural",
}

// IsGenre reports whether name is part of the genre vocabulary.
func IsGenre(name string) bool {
	for _, g := range Genres {
		if g == name {
			return true
		}
	}
	return false
}

// Manga is a locally cached catalog record used by the release feeds.
type Manga struct {
	ID int64 `json:"id" db:"id"`

	// Slug is the URL-safe unique form of the title.
	Slug string `json:"slug" db:"slug"`

	// AniListID links the record to the upstream catalog when it was seeded from it.
	AniListID *int `json:"anilistId,omitempty" db:"anilist_id"`

	Title       string   `json:"title" db:"title" validate:"required" label:"manga title"`
	Description string   `json:"description" db:"description" validate:"required" label:"manga description"`
	CoverImage  string   `json:"coverImage" db:"cover_image"`
	Genres      []string `json:"genres" db:"genres" validate:"dive,genre" label:"genre"`
	Status      string   `json:"status" db:"status" validate:"oneof=Ongoing Completed Hiatus" label:"status"`

	LatestChapter LatestChapter `json:"latestChapter" db:"latest_chapter"`

	TotalChapters int     `json:"totalChapters" db:"total_chapters" validate:"min=0" label:"total chapters"`
	Rating        float64 `json:"rating" db:"rating" validate:"min=0,max=10" label:"rating"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// LatestChapter is the most recently released chapter of a manga.
type LatestChapter struct {
	Number      int       `json:"number" db:"number" validate:"min=0" label:"chapter number"`
	ReleaseDate time.Time `json:"releaseDate" db:"release_date"`
}

// ApplyDefaults fills the defaults of a new record. now stamps the latest
// chapter release date when it is missing.
func (m *Manga) ApplyDefaults(now time.Time) {
	m.Title = strings.TrimSpace(m.Title)
	if strings.TrimSpace(m.CoverImage) == "" {
		m.CoverImage = DefaultMangaCover
	}
	if m.Status == "" {
		m.Status = MangaStatusOngoing
	}
	if m.LatestChapter.Number == 0 {
		m.LatestChapter.Number = 1
	}
	if m.LatestChapter.ReleaseDate.IsZero() {
		m.LatestChapter.ReleaseDate = now
	}
	if m.Genres == nil {
		m.Genres = []string{}
	}
}

// Validate checks the schema constraints of the record.
func (m Manga) Validate() error {
	return validateStruct(m)
}
