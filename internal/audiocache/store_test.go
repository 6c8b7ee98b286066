package audiocache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store for exercising Cache without a database.
type memStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]Entry)}
}

func (m *memStore) Lookup(ctx context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	return &e, nil
}

func (m *memStore) Put(ctx context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Key] = *e
	return nil
}

func (m *memStore) Touch(ctx context.Context, key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.LastAccessedAt = at
		m.entries[key] = e
	}
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memStore) DeleteIfCreated(ctx context.Context, key string, createdAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && e.CreatedAt.Equal(createdAt) {
		delete(m.entries, key)
	}
	return nil
}

func (m *memStore) TotalSize(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, e := range m.entries {
		total += e.SizeBytes
	}
	return total, nil
}

func (m *memStore) ListByAccess(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		e.Audio = nil
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastAccessedAt.Equal(out[j].LastAccessedAt) {
			return out[i].LastAccessedAt.Before(out[j].LastAccessedAt)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (m *memStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, e := range m.entries {
		if e.CreatedAt.Before(cutoff) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *memStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats Stats
	for _, e := range m.entries {
		stats.EntryCount++
		stats.TotalSizeBytes += e.SizeBytes
		if stats.OldestCreatedAt.IsZero() || e.CreatedAt.Before(stats.OldestCreatedAt) {
			stats.OldestCreatedAt = e.CreatedAt
		}
		if e.CreatedAt.After(stats.NewestCreatedAt) {
			stats.NewestCreatedAt = e.CreatedAt
		}
	}
	return stats, nil
}

func (m *memStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	return nil
}

var errStoreDown = errors.New("store unavailable")

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Lookup(context.Context, string) (*Entry, error) { return nil, errStoreDown }
func (failingStore) Put(context.Context, *Entry) error              { return errStoreDown }
func (failingStore) Touch(context.Context, string, time.Time) error { return errStoreDown }
func (failingStore) Delete(context.Context, string) error           { return errStoreDown }
func (failingStore) TotalSize(context.Context) (int64, error)       { return 0, errStoreDown }
func (failingStore) ListByAccess(context.Context) ([]Entry, error)  { return nil, errStoreDown }
func (failingStore) Stats(context.Context) (Stats, error)           { return Stats{}, errStoreDown }
func (failingStore) Clear(context.Context) error                    { return errStoreDown }

func (failingStore) DeleteIfCreated(context.Context, string, time.Time) error {
	return errStoreDown
}

func (failingStore) DeleteCreatedBefore(context.Context, time.Time) (int, error) {
	return 0, errStoreDown
}

// putFailingStore is a memStore whose writes fail.
type putFailingStore struct {
	*memStore
}

func (putFailingStore) Put(context.Context, *Entry) error { return errStoreDown }

// racingStore stores a fresh entry for the key right after the first lookup,
// as a concurrent writer would.
type racingStore struct {
	*memStore
	fresh *Entry
}

func (r *racingStore) Lookup(ctx context.Context, key string) (*Entry, error) {
	e, err := r.memStore.Lookup(ctx, key)
	if r.fresh != nil && r.fresh.Key == key {
		r.memStore.Put(ctx, r.fresh)
		r.fresh = nil
	}
	return e, err
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
