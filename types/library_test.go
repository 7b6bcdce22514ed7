package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestLocalBucket(t *testing.T) {
	cases := map[string]Bucket{
		"CURRENT":      BucketReading,
		"Reading":      BucketReading,
		"completed":    BucketCompleted,
		"Finished":     BucketCompleted,
		"PLANNING":     BucketPlanToRead,
		"plan-to-read": BucketPlanToRead,
		" dropped ":    BucketDropped,
		"Paused":       BucketPaused,
	}
	for status, want := range cases {
		got, ok := LocalBucket(status)
		assert.True(t, ok, status)
		assert.Equal(t, want, got, status)
	}

	_, ok := LocalBucket("someday")
	assert.False(t, ok)

	_, ok = RemoteBucket("current")
	assert.False(t, ok, "remote statuses are matched exactly")
}

func TestEntryIDAcceptsNumbersAndStrings(t *testing.T) {
	var entry LibraryEntry
	require.NoError(t, json.Unmarshal([]byte(`{"id":30013,"title":"One Piece"}`), &entry))
	assert.Equal(t, EntryID("30013"), entry.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id":" 99 ","title":"Test"}`), &entry))
	assert.Equal(t, EntryID("99"), entry.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id":true}`), &entry))
}

func TestLibraryEntryKeepsUnknownFields(t *testing.T) {
	var entry LibraryEntry
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","title":"A","addedAt":"2026-01-01T00:00:00.000Z"}`), &entry))
	require.Contains(t, entry.Extra, "addedAt")

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "2026-01-01T00:00:00.000Z", raw["addedAt"])
	assert.Equal(t, "1", raw["id"])
}

func TestLibraryDocumentUpsert(t *testing.T) {
	first := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	var doc LibraryDocument
	_, created := doc.Upsert(LibraryEntry{ID: "99", Title: "Test Manga", Status: "PLANNING", Progress: intPtr(0)}, first)
	assert.True(t, created)

	saved, created := doc.Upsert(LibraryEntry{ID: "99", Title: "Test Manga", Status: "CURRENT", Progress: intPtr(12)}, second)
	assert.False(t, created)

	require.Len(t, doc.Manga, 1)
	assert.Equal(t, "CURRENT", saved.Status)
	assert.Equal(t, 12, *saved.Progress)
	assert.Equal(t, "2026-10-01T08:00:00.000Z", saved.CreatedAt)
	assert.Equal(t, "2026-10-01T09:00:00.000Z", saved.UpdatedAt)

	doc.Upsert(LibraryEntry{ID: "100", Title: "Other"}, second)
	assert.Len(t, doc.Manga, 2)
}

func TestLibraryDocumentSectionAndStats(t *testing.T) {
	doc := LibraryDocument{Manga: []LibraryEntry{
		{ID: "1", Title: "A", Status: "COMPLETED"},
		{ID: "2", Title: "B", Status: "current", Progress: intPtr(3)},
		{ID: "3", Title: "C", Status: "PLANNING", Progress: intPtr(0)},
	}}

	section := doc.Section("completed")
	require.Len(t, section.Manga, 1)
	assert.Equal(t, EntryID("1"), section.Manga[0].ID)

	empty := doc.Section("dropped")
	assert.NotNil(t, empty.Manga)
	assert.Empty(t, empty.Manga)

	assert.Equal(t, ReadingStats{TotalRead: 2, Completed: 1}, doc.Stats())
}
