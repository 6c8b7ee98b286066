package audiocache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"lingoquest/internal/logger"
)

// Options configures a Cache
type Options struct {
	BudgetBytes int64
	MaxAge      time.Duration

	// Compress stores audio zstd-compressed at rest
	Compress bool

	// Now overrides the clock, for tests
	Now func() time.Time

	Logger *logger.Logger
}

// Cache serves synthesized audio from a Store, enforcing the byte budget on
// writes and the age limit on reads.
type Cache struct {
	store  Store
	budget int64
	maxAge time.Duration
	codec  *codec
	now    func() time.Time
	log    *logger.Logger

	// mu serializes writers so that the size check, eviction and insert
	// of one Set are not interleaved with another.
	mu sync.Mutex
}

// New creates a cache over store
func New(store Store, opts Options) (*Cache, error) {
	if opts.BudgetBytes <= 0 {
		return nil, fmt.Errorf("%w: budget must be positive, got %d", ErrInvalidConfig, opts.BudgetBytes)
	}
	if opts.MaxAge <= 0 {
		return nil, fmt.Errorf("%w: max age must be positive, got %s", ErrInvalidConfig, opts.MaxAge)
	}

	c := &Cache{
		store:  store,
		budget: opts.BudgetBytes,
		maxAge: opts.MaxAge,
		now:    opts.Now,
		log:    opts.Logger,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if opts.Compress {
		cd, err := newCodec()
		if err != nil {
			return nil, err
		}
		c.codec = cd
	}
	return c, nil
}

// Close releases compression resources. The store is owned by the caller.
func (c *Cache) Close() {
	c.codec.close()
}

// Budget returns the configured byte budget
func (c *Cache) Budget() int64 {
	return c.budget
}

// Get returns the cached audio for text, voice and provider. It returns
// ErrMiss when nothing usable is stored; expired entries are deleted first.
// Any other error is a storage failure that callers should treat as a miss.
func (c *Cache) Get(ctx context.Context, text, voice, provider string) ([]byte, error) {
	key := DeriveKey(text, voice, provider)

	e, err := c.store.Lookup(ctx, key)
	if errors.Is(err, ErrMiss) {
		return nil, ErrMiss
	}
	if err != nil {
		c.log.Warn("Audio cache lookup failed", "key", key, "error", err)
		return nil, fmt.Errorf("failed to look up audio %s: %w", key, err)
	}

	now := c.now()
	if now.Sub(e.CreatedAt) > c.maxAge {
		// A concurrent Set may have replaced the row since the lookup.
		if err := c.store.DeleteIfCreated(ctx, key, e.CreatedAt); err != nil {
			c.log.Warn("Failed to delete expired audio", "key", key, "error", err)
		}
		return nil, ErrMiss
	}

	// Keys are a 64-bit hash, so confirm the entry belongs to this request.
	if e.SourceText != truncateRunes(text, maxSourceTextRunes) || e.Voice != voice || e.Provider != provider {
		c.log.Debug("Audio cache key collision", "key", key)
		return nil, ErrMiss
	}

	audio, err := c.codec.decode(e.Audio, e.Compressed)
	if err != nil {
		c.log.Warn("Corrupt audio cache entry", "key", key, "error", err)
		if err := c.store.DeleteIfCreated(ctx, key, e.CreatedAt); err != nil {
			c.log.Warn("Failed to delete corrupt audio", "key", key, "error", err)
		}
		return nil, ErrMiss
	}

	if err := c.store.Touch(ctx, key, now); err != nil {
		c.log.Warn("Failed to refresh audio access time", "key", key, "error", err)
	}

	return audio, nil
}

// Set stores audio, evicting least recently accessed entries when the budget
// would be exceeded. A single entry larger than the budget is still stored.
// Errors are logged; callers should treat a failed Set as a no-op.
func (c *Cache) Set(ctx context.Context, text, voice, provider string, audio []byte) error {
	key := DeriveKey(text, voice, provider)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.set(ctx, key, text, voice, provider, audio); err != nil {
		c.log.Warn("Failed to cache audio", "key", key, "error", err)
		return err
	}
	return nil
}

func (c *Cache) set(ctx context.Context, key, text, voice, provider string, audio []byte) error {
	size := int64(len(audio))

	current, err := c.store.TotalSize(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache size: %w", err)
	}

	// Put replaces an existing entry in place, so its bytes do not count
	// against the budget and it is never evicted to make room for itself.
	prev, err := c.store.Lookup(ctx, key)
	switch {
	case err == nil:
		current -= prev.SizeBytes
	case !errors.Is(err, ErrMiss):
		return fmt.Errorf("failed to look up previous audio %s: %w", key, err)
	}

	if current+size > c.budget {
		need := current + size - c.budget
		if need < size {
			need = size
		}
		freed, evicted, err := c.evictLRU(ctx, need, key)
		if err != nil {
			return err
		}
		c.log.Debug("Evicted audio cache entries",
			"evicted", evicted,
			"freed", humanize.IBytes(uint64(freed)),
			"requested", humanize.IBytes(uint64(need)))
		if size > c.budget {
			c.log.Warn("Caching audio larger than budget",
				"key", key,
				"size", humanize.IBytes(uint64(size)),
				"budget", humanize.IBytes(uint64(c.budget)))
		}
	}

	stored, compressed := c.codec.encode(audio)
	now := c.now()
	entry := &Entry{
		Key:            key,
		SourceText:     truncateRunes(text, maxSourceTextRunes),
		Voice:          voice,
		Provider:       provider,
		Audio:          stored,
		Compressed:     compressed,
		CreatedAt:      now,
		LastAccessedAt: now,
		SizeBytes:      size,
	}
	if err := c.store.Put(ctx, entry); err != nil {
		return fmt.Errorf("failed to store audio %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry for text, voice and provider if present
func (c *Cache) Delete(ctx context.Context, text, voice, provider string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := DeriveKey(text, voice, provider)
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete audio %s: %w", key, err)
	}
	return nil
}

// Stats reports the cache contents without touching access times
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	stats, err := c.store.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return stats, nil
}

// Clear removes every entry
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear audio cache: %w", err)
	}
	c.log.Info("Audio cache cleared")
	return nil
}

// PruneExpired removes every entry older than the max age and returns how many were removed
func (c *Cache) PruneExpired(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.maxAge)
	removed, err := c.store.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return removed, fmt.Errorf("failed to prune expired audio: %w", err)
	}
	return removed, nil
}

// StartSweeper prunes expired entries every interval until ctx is done
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := c.PruneExpired(ctx)
				if err != nil {
					c.log.Warn("Audio cache sweep failed", "error", err)
					continue
				}
				if removed > 0 {
					c.log.Info("Pruned expired audio", "removed", removed)
				}
			}
		}
	}()
}
