// Package audiocache is a content-addressed, size-bounded cache for
// synthesized speech. Entries are keyed by DeriveKey, evicted least recently
// accessed first when the byte budget would be exceeded, and expire by age.
package audiocache

import (
	"context"
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrMiss is returned when no usable entry exists for a key
	ErrMiss = errors.New("audio cache miss")

	// ErrInvalidConfig is returned by New for a non-positive budget or max age
	ErrInvalidConfig = errors.New("invalid audio cache config")
)

const (
	// DefaultBudgetBytes is the default total size budget (100 MB)
	DefaultBudgetBytes int64 = 100 * 1024 * 1024

	// DefaultMaxAge is how long an entry may be served after it was written
	DefaultMaxAge = 30 * 24 * time.Hour

	// maxSourceTextRunes bounds the diagnostic copy of the source text
	maxSourceTextRunes = 100
)

// Entry is one cached clip. Audio may be compressed at rest;
// SizeBytes is always the uncompressed length.
type Entry struct {
	Key            string
	SourceText     string
	Voice          string
	Provider       string
	Audio          []byte
	Compressed     bool
	CreatedAt      time.Time
	LastAccessedAt time.Time
	SizeBytes      int64
}

// Stats summarizes the cache contents
type Stats struct {
	EntryCount      int       `json:"entryCount"`
	TotalSizeBytes  int64     `json:"totalSizeBytes"`
	OldestCreatedAt time.Time `json:"oldestCreatedAt"`
	NewestCreatedAt time.Time `json:"newestCreatedAt"`
}

// Store is the persistence behind a Cache. Implementations must make Put and
// Delete atomic per entry, and Put must replace an existing entry for the key
// in one step. Lookup returns ErrMiss when the key is absent.
type Store interface {
	Lookup(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, e *Entry) error
	Touch(ctx context.Context, key string, at time.Time) error
	Delete(ctx context.Context, key string) error

	// DeleteIfCreated removes key only while its CreatedAt still equals createdAt
	DeleteIfCreated(ctx context.Context, key string, createdAt time.Time) error

	// TotalSize is the sum of SizeBytes over all entries
	TotalSize(ctx context.Context) (int64, error)

	// ListByAccess returns entry metadata without audio, ordered by
	// LastAccessedAt then Key, both ascending
	ListByAccess(ctx context.Context) ([]Entry, error)

	// DeleteCreatedBefore removes entries with CreatedAt before cutoff
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)

	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error
}

// truncateRunes shortens s to at most n runes
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
