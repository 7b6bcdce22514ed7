// Package library merges the catalog-hosted reading list with the
// cookie-backed one into five status buckets.
package library

import (
	"strings"

	"github.com/mangashelf/apiserver/types"
)

// Buckets holds list entries grouped by canonical status.
type Buckets struct {
	Reading    []types.LibraryEntry `json:"reading"`
	Completed  []types.LibraryEntry `json:"completed"`
	PlanToRead []types.LibraryEntry `json:"planToRead"`
	Dropped    []types.LibraryEntry `json:"dropped"`
	Paused     []types.LibraryEntry `json:"paused"`
}

// NewBuckets returns buckets with every slice non-nil so they encode as [].
func NewBuckets() Buckets {
	return Buckets{
		Reading:    []types.LibraryEntry{},
		Completed:  []types.LibraryEntry{},
		PlanToRead: []types.LibraryEntry{},
		Dropped:    []types.LibraryEntry{},
		Paused:     []types.LibraryEntry{},
	}
}

// Get returns the entries of bucket b.
func (b Buckets) Get(bucket types.Bucket) []types.LibraryEntry {
	if p := b.slot(bucket); p != nil {
		return *p
	}
	return nil
}

// Add appends entry to bucket. Unknown buckets are ignored.
func (b *Buckets) Add(bucket types.Bucket, entry types.LibraryEntry) {
	if p := b.slot(bucket); p != nil {
		*p = append(*p, entry)
	}
}

// Len counts entries across all buckets.
func (b Buckets) Len() int {
	n := 0
	for _, bucket := range types.AllBuckets {
		n += len(b.Get(bucket))
	}
	return n
}

// Only keeps bucket and empties the others.
func (b Buckets) Only(bucket types.Bucket) Buckets {
	out := NewBuckets()
	for _, entry := range b.Get(bucket) {
		out.Add(bucket, entry)
	}
	return out
}

func (b *Buckets) slot(bucket types.Bucket) *[]types.LibraryEntry {
	switch bucket {
	case types.BucketReading:
		return &b.Reading
	case types.BucketCompleted:
		return &b.Completed
	case types.BucketPlanToRead:
		return &b.PlanToRead
	case types.BucketDropped:
		return &b.Dropped
	case types.BucketPaused:
		return &b.Paused
	default:
		return nil
	}
}

// Merge combines the local cookie list with the remote buckets.
//
// Local entries are placed by their free-text status and come first in each
// bucket. The first entry seen for an id wins, walking buckets in
// types.AllBuckets order. A remote entry is also dropped when its id appears
// anywhere in the local list, so an id only ever shows up in the bucket the
// local entry chose. Local entries whose status maps to no bucket are left
// out.
func Merge(local []types.LibraryEntry, remote Buckets) Buckets {
	localIDs := make(map[types.EntryID]struct{}, len(local))
	for _, entry := range local {
		localIDs[entry.ID] = struct{}{}
	}

	out := NewBuckets()
	seen := make(map[types.EntryID]struct{})
	for _, bucket := range types.AllBuckets {
		for _, entry := range local {
			b, ok := types.LocalBucket(entry.Status)
			if !ok || b != bucket {
				continue
			}
			if _, dup := seen[entry.ID]; dup {
				continue
			}
			seen[entry.ID] = struct{}{}
			out.Add(bucket, entry)
		}
		for _, entry := range remote.Get(bucket) {
			if _, shadowed := localIDs[entry.ID]; shadowed {
				continue
			}
			if _, dup := seen[entry.ID]; dup {
				continue
			}
			seen[entry.ID] = struct{}{}
			out.Add(bucket, entry)
		}
	}
	return out
}

// Filter returns the entries whose title or any genre contains q, ignoring
// case. An empty query returns a copy of b. b itself is not modified.
func Filter(b Buckets, q string) Buckets {
	q = strings.ToLower(strings.TrimSpace(q))
	out := NewBuckets()
	for _, bucket := range types.AllBuckets {
		for _, entry := range b.Get(bucket) {
			if q == "" || matches(entry, q) {
				out.Add(bucket, entry)
			}
		}
	}
	return out
}

func matches(entry types.LibraryEntry, q string) bool {
	if strings.Contains(strings.ToLower(entry.Title), q) {
		return true
	}
	for _, genre := range entry.Genres {
		if strings.Contains(strings.ToLower(genre), q) {
			return true
		}
	}
	return false
}
