package catalog

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mangashelf/apiserver/types"
)

// Title carries the catalog's title variants.
type Title struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

// Display picks english, then romaji, then native.
func (t Title) Display() string {
	for _, candidate := range []string{t.English, t.Romaji, t.Native} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return ""
}

type CoverImage struct {
	Large  string `json:"large"`
	Medium string `json:"medium"`
}

// Fallback returns the catalog's own cover, or the placeholder.
func (c CoverImage) Fallback() string {
	if c.Large != "" {
		return c.Large
	}
	if c.Medium != "" {
		return c.Medium
	}
	return types.DefaultMangaCover
}

// Media is a manga record as returned by the GraphQL catalog.
type Media struct {
	ID           int        `json:"id"`
	Title        Title      `json:"title"`
	Description  string     `json:"description"`
	Genres       []string   `json:"genres"`
	Status       string     `json:"status"`
	AverageScore *int       `json:"averageScore"`
	CoverImage   CoverImage `json:"coverImage"`
	Chapters     *int       `json:"chapters"`
}

// Manga is the shape served to API clients.
type Manga struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Genres       []string `json:"genres"`
	Status       string   `json:"status"`
	AverageScore *int     `json:"averageScore,omitempty"`
	CoverImage   string   `json:"coverImage"`
	Chapters     *int     `json:"chapters,omitempty"`
}

// Page is one page of catalog results.
type Page struct {
	Page        int     `json:"page"`
	HasNextPage bool    `json:"hasNextPage"`
	Items       []Manga `json:"items"`
}

func newManga(m Media, cover string) Manga {
	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}
	return Manga{
		ID:           m.ID,
		Title:        m.Title.Display(),
		Description:  PlainText(m.Description),
		Genres:       genres,
		Status:       m.Status,
		AverageScore: m.AverageScore,
		CoverImage:   cover,
		Chapters:     m.Chapters,
	}
}

// PlainText strips the HTML the catalog embeds in descriptions. Line breaks
// are kept as newlines.
func PlainText(description string) string {
	if !strings.Contains(description, "<") {
		return strings.TrimSpace(description)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return strings.TrimSpace(description)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(doc.Text())
}

// libraryEntry converts a remote list item for merging with the local list.
func libraryEntry(m Media, status string, progress *int) types.LibraryEntry {
	entry := types.LibraryEntry{
		ID:            types.EntryIDFromInt(m.ID),
		Title:         m.Title.Display(),
		CoverImage:    m.CoverImage.Fallback(),
		Status:        status,
		Progress:      progress,
		TotalChapters: m.Chapters,
		Genres:        m.Genres,
	}
	if m.AverageScore != nil {
		score := float64(*m.AverageScore)
		entry.AverageScore = &score
	}
	return entry
}
