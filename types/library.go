package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Bucket is one of the five canonical reading-list statuses.
type Bucket string

const (
	BucketReading    Bucket = "reading"
	BucketCompleted  Bucket = "completed"
	BucketPlanToRead Bucket = "planToRead"
	BucketDropped    Bucket = "dropped"
	BucketPaused     Bucket = "paused"
)

// AllBuckets lists the buckets in display order.
var AllBuckets = []Bucket{BucketReading, BucketCompleted, BucketPlanToRead, BucketDropped, BucketPaused}

// Remote list statuses as reported by the catalog.
const (
	RemoteStatusCurrent   = "CURRENT"
	RemoteStatusCompleted = "COMPLETED"
	RemoteStatusPlanning  = "PLANNING"
	RemoteStatusDropped   = "DROPPED"
	RemoteStatusPaused    = "PAUSED"
)

var remoteBuckets = map[string]Bucket{
	RemoteStatusCurrent:   BucketReading,
	RemoteStatusCompleted: BucketCompleted,
	RemoteStatusPlanning:  BucketPlanToRead,
	RemoteStatusDropped:   BucketDropped,
	RemoteStatusPaused:    BucketPaused,
}

var localBuckets = map[string]Bucket{
	"current":      BucketReading,
	"reading":      BucketReading,
	"completed":    BucketCompleted,
	"finished":     BucketCompleted,
	"planning":     BucketPlanToRead,
	"plan-to-read": BucketPlanToRead,
	"plan to read": BucketPlanToRead,
	"plantoread":   BucketPlanToRead,
	"dropped":      BucketDropped,
	"paused":       BucketPaused,
	"on-hold":      BucketPaused,
	"on hold":      BucketPaused,
}

// RemoteBucket maps a catalog list status to its bucket.
func RemoteBucket(status string) (Bucket, bool) {
	b, ok := remoteBuckets[status]
	return b, ok
}

// LocalBucket maps a free-text library status to its bucket, ignoring case.
func LocalBucket(status string) (Bucket, bool) {
	b, ok := localBuckets[strings.ToLower(strings.TrimSpace(status))]
	return b, ok
}

// ParseBucket accepts a bucket name in any case.
func ParseBucket(name string) (Bucket, bool) {
	for _, b := range AllBuckets {
		if strings.EqualFold(string(b), strings.TrimSpace(name)) {
			return b, true
		}
	}
	return "", false
}

// EntryID is a library entry identifier. Clients send it either as a JSON
// string or as a catalog number; both decode to the same string form.
type EntryID string

func (id *EntryID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EntryID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("id must be a string or a number")
	}
	*id = EntryID(n.String())
	return nil
}

// EntryIDFromInt formats a numeric catalog id.
func EntryIDFromInt(id int) EntryID {
	return EntryID(strconv.Itoa(id))
}

// LibraryEntry is one title in the cookie-backed reading list.
// Fields the server does not know about are kept in Extra and written back
// unchanged.
type LibraryEntry struct {
	ID            EntryID  `json:"id"`
	Title         string   `json:"title"`
	CoverImage    string   `json:"coverImage,omitempty"`
	Status        string   `json:"status,omitempty"`
	Progress      *int     `json:"progress,omitempty"`
	TotalChapters *int     `json:"totalChapters,omitempty"`
	AverageScore  *float64 `json:"averageScore,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	UpdatedAt     string   `json:"updatedAt,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type libraryEntryAlias LibraryEntry

var libraryEntryKeys = map[string]struct{}{
	"id": {}, "title": {}, "coverImage": {}, "status": {}, "progress": {},
	"totalChapters": {}, "averageScore": {}, "genres": {}, "createdAt": {}, "updatedAt": {},
}

func (e *LibraryEntry) UnmarshalJSON(data []byte) error {
	var alias libraryEntryAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range libraryEntryKeys {
		delete(raw, key)
	}
	if len(raw) > 0 {
		alias.Extra = raw
	}
	*e = LibraryEntry(alias)
	return nil
}

func (e LibraryEntry) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(libraryEntryAlias(e))
	if err != nil || len(e.Extra) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range e.Extra {
		if _, known := libraryEntryKeys[key]; !known {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// Valid reports whether the entry carries the two required fields.
func (e LibraryEntry) Valid() bool {
	return strings.TrimSpace(string(e.ID)) != "" && strings.TrimSpace(e.Title) != ""
}

// MergeFrom overlays every field set on other onto e. Timestamps are left
// alone; callers stamp them.
func (e *LibraryEntry) MergeFrom(other LibraryEntry) {
	if other.ID != "" {
		e.ID = other.ID
	}
	if other.Title != "" {
		e.Title = other.Title
	}
	if other.CoverImage != "" {
		e.CoverImage = other.CoverImage
	}
	if other.Status != "" {
		e.Status = other.Status
	}
	if other.Progress != nil {
		e.Progress = other.Progress
	}
	if other.TotalChapters != nil {
		e.TotalChapters = other.TotalChapters
	}
	if other.AverageScore != nil {
		e.AverageScore = other.AverageScore
	}
	if other.Genres != nil {
		e.Genres = other.Genres
	}
	if len(other.Extra) > 0 {
		if e.Extra == nil {
			e.Extra = make(map[string]json.RawMessage, len(other.Extra))
		}
		for key, value := range other.Extra {
			e.Extra[key] = value
		}
	}
}

// LibraryDocument is the JSON document persisted in the userLibrary cookie.
type LibraryDocument struct {
	Manga []LibraryEntry `json:"manga"`
}

// TimestampLayout matches JavaScript's Date.toISOString output.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders now in UTC with millisecond precision.
func FormatTimestamp(now time.Time) string {
	return now.UTC().Format(TimestampLayout)
}

// Upsert finds the entry with the same id and merges entry over it,
// stamping updatedAt, or appends it stamped with createdAt. It reports
// whether a new entry was appended.
func (d *LibraryDocument) Upsert(entry LibraryEntry, now time.Time) (LibraryEntry, bool) {
	for i := range d.Manga {
		if d.Manga[i].ID == entry.ID {
			d.Manga[i].MergeFrom(entry)
			d.Manga[i].UpdatedAt = FormatTimestamp(now)
			return d.Manga[i], false
		}
	}

	entry.CreatedAt = FormatTimestamp(now)
	d.Manga = append(d.Manga, entry)
	return entry, true
}

// Section returns the entries whose status equals section, ignoring case.
func (d LibraryDocument) Section(section string) LibraryDocument {
	out := LibraryDocument{Manga: []LibraryEntry{}}
	for _, entry := range d.Manga {
		if strings.EqualFold(entry.Status, section) {
			out.Manga = append(out.Manga, entry)
		}
	}
	return out
}

// Stats derives the profile counters from the document. An entry counts as
// read once it has progress or sits in the completed bucket.
func (d LibraryDocument) Stats() ReadingStats {
	var stats ReadingStats
	for _, entry := range d.Manga {
		bucket, _ := LocalBucket(entry.Status)
		if bucket == BucketCompleted {
			stats.Completed++
		}
		if bucket == BucketCompleted || (entry.Progress != nil && *entry.Progress > 0) {
			stats.TotalRead++
		}
	}
	return stats
}
