package services

import (
	"context"
	"time"

	"github.com/mangashelf/apiserver/internal/auth"
	"github.com/mangashelf/apiserver/internal/events"
	"github.com/mangashelf/apiserver/types"
)

const msgInvalidManga = "Invalid manga data"

// LibraryService applies changes to a cookie-held library document. It
// never sees the cookie itself.
type LibraryService struct {
	publisher EventPublisher
	now       func() time.Time
}

func NewLibraryService(publisher EventPublisher) *LibraryService {
	return &LibraryService{publisher: publisher, now: time.Now}
}

// Save adds entry to doc or merges it over the entry with the same id. When
// a session is present the recomputed reading stats are published.
func (s *LibraryService) Save(ctx context.Context, current *auth.CurrentUser, doc types.LibraryDocument, entry types.LibraryEntry) (types.LibraryDocument, types.LibraryEntry, error) {
	if !entry.Valid() {
		return doc, types.LibraryEntry{}, invalidInput(msgInvalidManga)
	}

	stored, _ := doc.Upsert(entry, s.now())

	if current != nil && s.publisher != nil {
		s.publisher.Publish(ctx, events.TypeLibraryEntrySaved, current.ID, events.LibraryEntrySaved{
			EntryID:  stored.ID,
			Status:   stored.Status,
			Progress: stored.Progress,
			Stats:    doc.Stats(),
		})
	}
	return doc, stored, nil
}

// Section filters doc by status. An empty section returns doc unchanged.
func (s *LibraryService) Section(doc types.LibraryDocument, section string) types.LibraryDocument {
	if section == "" {
		if doc.Manga == nil {
			doc.Manga = []types.LibraryEntry{}
		}
		return doc
	}
	return doc.Section(section)
}
