package audiocache

import (
	"context"
	"fmt"
)

// evictLRU deletes entries other than keep in ascending access order until at
// least need bytes are freed or nothing else is left. It works from one
// snapshot so no entry is considered twice. Callers must hold c.mu.
func (c *Cache) evictLRU(ctx context.Context, need int64, keep string) (freed int64, evicted int, err error) {
	entries, err := c.store.ListByAccess(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list entries for eviction: %w", err)
	}

	for _, e := range entries {
		if freed >= need {
			break
		}
		if e.Key == keep {
			continue
		}
		if err := c.store.Delete(ctx, e.Key); err != nil {
			return freed, evicted, fmt.Errorf("failed to evict audio %s: %w", e.Key, err)
		}
		freed += e.SizeBytes
		evicted++
	}
	return freed, evicted, nil
}
