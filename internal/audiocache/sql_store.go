package audiocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lingoquest/internal/database"
)

var entryColumns = []string{
	"id", "source_text", "voice", "provider", "audio", "compressed",
	"created_at", "last_accessed_at", "size_bytes",
}

// SQLStore keeps entries in the audio_cache table
type SQLStore struct {
	db *database.DB
}

// NewSQLStore creates a store over a migrated database
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Lookup(ctx context.Context, key string) (*Entry, error) {
	query := `
		SELECT id, source_text, voice, provider, audio, compressed, created_at, last_accessed_at, size_bytes
		FROM audio_cache
		WHERE id = ?
	`
	var e Entry
	var createdAt, accessedAt int64
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&e.Key, &e.SourceText, &e.Voice, &e.Provider, &e.Audio, &e.Compressed,
		&createdAt, &accessedAt, &e.SizeBytes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audio: %w", err)
	}
	e.CreatedAt = time.UnixMilli(createdAt)
	e.LastAccessedAt = time.UnixMilli(accessedAt)
	return &e, nil
}

func (s *SQLStore) Put(ctx context.Context, e *Entry) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		return tx.Upsert(ctx, "audio_cache", entryColumns, []string{"id"}, entryColumns[1:],
			e.Key, e.SourceText, e.Voice, e.Provider, e.Audio, e.Compressed,
			e.CreatedAt.UnixMilli(), e.LastAccessedAt.UnixMilli(), e.SizeBytes,
		)
	})
}

func (s *SQLStore) Touch(ctx context.Context, key string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, "UPDATE audio_cache SET last_accessed_at = ? WHERE id = ?", at.UnixMilli(), key)
	if err != nil {
		return fmt.Errorf("failed to touch audio: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM audio_cache WHERE id = ?", key); err != nil {
		return fmt.Errorf("failed to delete audio: %w", err)
	}
	return nil
}

func (s *SQLStore) DeleteIfCreated(ctx context.Context, key string, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM audio_cache WHERE id = ? AND created_at = ?", key, createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to delete audio: %w", err)
	}
	return nil
}

func (s *SQLStore) TotalSize(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(size_bytes), 0) FROM audio_cache").Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum audio sizes: %w", err)
	}
	return total, nil
}

func (s *SQLStore) ListByAccess(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT id, source_text, voice, provider, compressed, created_at, last_accessed_at, size_bytes
		FROM audio_cache
		ORDER BY last_accessed_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt, accessedAt int64
		if err := rows.Scan(&e.Key, &e.SourceText, &e.Voice, &e.Provider, &e.Compressed, &createdAt, &accessedAt, &e.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan audio: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdAt)
		e.LastAccessedAt = time.UnixMilli(accessedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM audio_cache WHERE created_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired audio: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired audio: %w", err)
	}
	return int(n), nil
}

func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0), COALESCE(MIN(created_at), 0), COALESCE(MAX(created_at), 0)
		FROM audio_cache
	`
	var stats Stats
	var oldest, newest int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&stats.EntryCount, &stats.TotalSizeBytes, &oldest, &newest); err != nil {
		return Stats{}, fmt.Errorf("failed to read audio stats: %w", err)
	}
	if stats.EntryCount > 0 {
		stats.OldestCreatedAt = time.UnixMilli(oldest)
		stats.NewestCreatedAt = time.UnixMilli(newest)
	}
	return stats, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM audio_cache"); err != nil {
		return fmt.Errorf("failed to clear audio: %w", err)
	}
	return nil
}
