package audiocache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"
)

func newTestCache(t *testing.T, store Store, clock *fakeClock, budget int64, compress bool) *Cache {
	t.Helper()
	c, err := New(store, Options{
		BudgetBytes: budget,
		MaxAge:      DefaultMaxAge,
		Compress:    compress,
		Now:         clock.Now,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestDeriveKey(t *testing.T) {
	base := DeriveKey("hola", "Kore", "gemini")

	if got := DeriveKey("hola", "Kore", "gemini"); got != base {
		t.Errorf("DeriveKey() not deterministic: %v != %v", got, base)
	}
	if len(base) != 16 {
		t.Errorf("DeriveKey() length = %d, want 16", len(base))
	}

	tests := []struct {
		name                  string
		text, voice, provider string
	}{
		{"different text", "adios", "Kore", "gemini"},
		{"different voice", "hola", "Puck", "gemini"},
		{"different provider", "hola", "Kore", "google"},
		{"fields swapped", "Kore", "hola", "gemini"},
		{"separator shifted", "hola", "Kore:", "gemini"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveKey(tt.text, tt.voice, tt.provider); got == base {
				t.Errorf("DeriveKey(%q, %q, %q) = %v, collides with base", tt.text, tt.voice, tt.provider, got)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero budget", Options{BudgetBytes: 0, MaxAge: time.Hour}},
		{"negative budget", Options{BudgetBytes: -1, MaxAge: time.Hour}},
		{"zero max age", Options{BudgetBytes: 1024, MaxAge: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(newMemStore(), tt.opts); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		audio    []byte
	}{
		{"small clip", false, []byte{0x01, 0x02, 0x03}},
		{"large clip uncompressed", false, bytes.Repeat([]byte("pcm!"), 2048)},
		{"large clip compressed", true, bytes.Repeat([]byte("pcm!"), 2048)},
		{"small clip with compression on", true, []byte("tiny")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newMemStore()
			c := newTestCache(t, store, newFakeClock(), DefaultBudgetBytes, tt.compress)

			if err := c.Set(ctx, "el gato", "Kore", "gemini", tt.audio); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := c.Get(ctx, "el gato", "Kore", "gemini")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !bytes.Equal(got, tt.audio) {
				t.Errorf("Get() returned %d bytes, want %d", len(got), len(tt.audio))
			}

			stats, _ := c.Stats(ctx)
			if stats.TotalSizeBytes != int64(len(tt.audio)) {
				t.Errorf("TotalSizeBytes = %d, want uncompressed length %d", stats.TotalSizeBytes, len(tt.audio))
			}
		})
	}
}

func TestCompressionAtRest(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	writer := newTestCache(t, store, newFakeClock(), DefaultBudgetBytes, true)

	audio := bytes.Repeat([]byte("ab"), 4096)
	if err := writer.Set(ctx, "perro", "Kore", "gemini", audio); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	e := store.entries[DeriveKey("perro", "Kore", "gemini")]
	if !e.Compressed {
		t.Fatal("entry should be stored compressed")
	}
	if len(e.Audio) >= len(audio) {
		t.Errorf("stored %d bytes, want fewer than %d", len(e.Audio), len(audio))
	}

	// A cache without compression still reads compressed entries
	reader := newTestCache(t, store, newFakeClock(), DefaultBudgetBytes, false)
	got, err := reader.Get(ctx, "perro", "Kore", "gemini")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, audio) {
		t.Error("Get() returned different bytes")
	}
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t, newMemStore(), newFakeClock(), DefaultBudgetBytes, false)

	if _, err := c.Get(context.Background(), "nada", "Kore", "gemini"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() error = %v, want ErrMiss", err)
	}
}

func TestGetRefreshesAccessTime(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	clock := newFakeClock()
	c := newTestCache(t, store, clock, DefaultBudgetBytes, false)

	if err := c.Set(ctx, "uno", "Kore", "gemini", []byte("1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	clock.Advance(time.Minute)
	if _, err := c.Get(ctx, "uno", "Kore", "gemini"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	e := store.entries[DeriveKey("uno", "Kore", "gemini")]
	if !e.LastAccessedAt.Equal(clock.Now()) {
		t.Errorf("LastAccessedAt = %v, want %v", e.LastAccessedAt, clock.Now())
	}
	if e.CreatedAt.Equal(clock.Now()) {
		t.Error("CreatedAt should not change on read")
	}
}

func TestExpiration(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantHit bool
	}{
		{"fresh", time.Hour, true},
		{"exactly max age", DefaultMaxAge, true},
		{"just past max age", DefaultMaxAge + time.Millisecond, false},
		{"long expired", 2 * DefaultMaxAge, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			clock := newFakeClock()
			c := newTestCache(t, newMemStore(), clock, DefaultBudgetBytes, false)

			if err := c.Set(ctx, "viejo", "Kore", "gemini", []byte("old")); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			clock.Advance(tt.elapsed)

			_, err := c.Get(ctx, "viejo", "Kore", "gemini")
			if tt.wantHit && err != nil {
				t.Fatalf("Get() error = %v, want hit", err)
			}
			if !tt.wantHit {
				if !errors.Is(err, ErrMiss) {
					t.Fatalf("Get() error = %v, want ErrMiss", err)
				}
				stats, _ := c.Stats(ctx)
				if stats.EntryCount != 0 {
					t.Errorf("EntryCount = %d, expired entry should be deleted", stats.EntryCount)
				}
			}
		})
	}
}

func TestExpirationBeatsRecentAccess(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, newMemStore(), clock, DefaultBudgetBytes, false)

	if err := c.Set(ctx, "hola", "Kore", "gemini", []byte("x")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	// Frequent reads do not extend the lifetime.
	for i := 0; i < 30; i++ {
		clock.Advance(24 * time.Hour)
		c.Get(ctx, "hola", "Kore", "gemini")
	}
	clock.Advance(time.Hour)

	if _, err := c.Get(ctx, "hola", "Kore", "gemini"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() error = %v, want ErrMiss", err)
	}
}

func TestBudgetInvariant(t *testing.T) {
	ctx := context.Background()
	const budget = 1000
	clock := newFakeClock()
	c := newTestCache(t, newMemStore(), clock, budget, false)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		clock.Advance(time.Second)
		size := rng.Intn(400) + 1
		text := fmt.Sprintf("word-%d", rng.Intn(50))
		if err := c.Set(ctx, text, "Kore", "gemini", make([]byte, size)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		stats, err := c.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if stats.TotalSizeBytes > budget {
			t.Fatalf("after set %d: TotalSizeBytes = %d, exceeds budget %d", i, stats.TotalSizeBytes, budget)
		}
	}
}

func TestOversizedEntryAccepted(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, newMemStore(), clock, 100, false)

	c.Set(ctx, "a", "Kore", "gemini", make([]byte, 40))
	clock.Advance(time.Second)
	c.Set(ctx, "b", "Kore", "gemini", make([]byte, 40))
	clock.Advance(time.Second)

	big := bytes.Repeat([]byte{7}, 500)
	if err := c.Set(ctx, "big", "Kore", "gemini", big); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	stats, _ := c.Stats(ctx)
	if stats.EntryCount != 1 || stats.TotalSizeBytes != 500 {
		t.Errorf("Stats() = %+v, want only the oversized entry", stats)
	}
	got, err := c.Get(ctx, "big", "Kore", "gemini")
	if err != nil || !bytes.Equal(got, big) {
		t.Errorf("Get() = %d bytes, %v; want oversized entry", len(got), err)
	}
}

func TestEvictionByAccessRecency(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, newMemStore(), clock, 300, false)

	for _, text := range []string{"first", "second", "third"} {
		if err := c.Set(ctx, text, "Kore", "gemini", make([]byte, 100)); err != nil {
			t.Fatalf("Set(%s) error = %v", text, err)
		}
		clock.Advance(time.Second)
	}

	// Reading the oldest insert makes "second" the least recently accessed.
	if _, err := c.Get(ctx, "first", "Kore", "gemini"); err != nil {
		t.Fatalf("Get(first) error = %v", err)
	}
	clock.Advance(time.Second)

	if err := c.Set(ctx, "fourth", "Kore", "gemini", make([]byte, 100)); err != nil {
		t.Fatalf("Set(fourth) error = %v", err)
	}

	tests := []struct {
		text    string
		present bool
	}{
		{"first", true},
		{"second", false},
		{"third", true},
		{"fourth", true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := c.Get(ctx, tt.text, "Kore", "gemini")
			if tt.present && err != nil {
				t.Errorf("Get(%s) error = %v, want hit", tt.text, err)
			}
			if !tt.present && !errors.Is(err, ErrMiss) {
				t.Errorf("Get(%s) error = %v, want ErrMiss", tt.text, err)
			}
		})
	}
}

func TestEvictionTieBreakIsByKey(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	clock := newFakeClock()
	c := newTestCache(t, store, clock, 200, false)

	// Same timestamp for both, so the smaller key goes first.
	c.Set(ctx, "x", "Kore", "gemini", make([]byte, 100))
	c.Set(ctx, "y", "Kore", "gemini", make([]byte, 100))
	clock.Advance(time.Second)
	c.Set(ctx, "z", "Kore", "gemini", make([]byte, 100))

	kx, ky := DeriveKey("x", "Kore", "gemini"), DeriveKey("y", "Kore", "gemini")
	evicted, kept := kx, ky
	if ky < kx {
		evicted, kept = ky, kx
	}
	if _, ok := store.entries[evicted]; ok {
		t.Errorf("entry %s should have been evicted", evicted)
	}
	if _, ok := store.entries[kept]; !ok {
		t.Errorf("entry %s should have been kept", kept)
	}
}

func TestSetOverwritesSameKey(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, newMemStore(), clock, 150, false)

	c.Set(ctx, "gato", "Kore", "gemini", make([]byte, 100))
	clock.Advance(time.Hour)
	// Replacing the only entry must not evict anything else nor count twice.
	if err := c.Set(ctx, "gato", "Kore", "gemini", []byte("new")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	stats, _ := c.Stats(ctx)
	if stats.EntryCount != 1 || stats.TotalSizeBytes != 3 {
		t.Errorf("Stats() = %+v, want one 3 byte entry", stats)
	}
	if !stats.NewestCreatedAt.Equal(clock.Now()) {
		t.Errorf("CreatedAt = %v, want reset to %v", stats.NewestCreatedAt, clock.Now())
	}
}

func TestReplaceDoesNotEvictItself(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, newMemStore(), clock, 100, false)

	c.Set(ctx, "a", "Kore", "gemini", make([]byte, 50))
	clock.Advance(time.Second)
	c.Set(ctx, "b", "Kore", "gemini", make([]byte, 50))
	clock.Advance(time.Second)

	// "a" is the least recently used entry, but it is the one being replaced.
	if err := c.Set(ctx, "a", "Kore", "gemini", make([]byte, 60)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := c.Get(ctx, "b", "Kore", "gemini"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get(b) error = %v, want ErrMiss", err)
	}
	got, err := c.Get(ctx, "a", "Kore", "gemini")
	if err != nil || len(got) != 60 {
		t.Errorf("Get(a) = %d bytes, %v; want 60 bytes", len(got), err)
	}
}

func TestFailedSetKeepsPreviousEntry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	mem := newMemStore()

	c := newTestCache(t, mem, clock, DefaultBudgetBytes, false)
	if err := c.Set(ctx, "a", "Kore", "gemini", []byte("old clip")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	broken := newTestCache(t, putFailingStore{mem}, clock, DefaultBudgetBytes, false)
	if err := broken.Set(ctx, "a", "Kore", "gemini", []byte("new clip")); !errors.Is(err, errStoreDown) {
		t.Fatalf("Set() error = %v, want wrapped store error", err)
	}

	got, err := c.Get(ctx, "a", "Kore", "gemini")
	if err != nil {
		t.Fatalf("Get() error = %v, want the previous clip", err)
	}
	if string(got) != "old clip" {
		t.Errorf("Get() = %q, want %q", got, "old clip")
	}
}

func TestExpiredDeleteSparesNewerEntry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := &racingStore{memStore: newMemStore()}
	c := newTestCache(t, store, clock, DefaultBudgetBytes, false)

	if err := c.Set(ctx, "a", "Kore", "gemini", []byte("stale")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	clock.Advance(DefaultMaxAge + time.Hour)

	key := DeriveKey("a", "Kore", "gemini")
	store.fresh = &Entry{
		Key:            key,
		SourceText:     "a",
		Voice:          "Kore",
		Provider:       "gemini",
		Audio:          []byte("fresh"),
		CreatedAt:      clock.Now(),
		LastAccessedAt: clock.Now(),
		SizeBytes:      5,
	}

	if _, err := c.Get(ctx, "a", "Kore", "gemini"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get() error = %v, want ErrMiss for the expired read", err)
	}
	got, err := c.Get(ctx, "a", "Kore", "gemini")
	if err != nil {
		t.Fatalf("Get() error = %v, want the newer entry", err)
	}
	if string(got) != "fresh" {
		t.Errorf("Get() = %q, want %q", got, "fresh")
	}
}

func TestStatsDoesNotTouchEntries(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	clock := newFakeClock()
	c := newTestCache(t, store, clock, DefaultBudgetBytes, false)

	c.Set(ctx, "a", "Kore", "gemini", []byte("aa"))
	clock.Advance(time.Second)
	c.Set(ctx, "b", "Kore", "gemini", []byte("bbb"))
	clock.Advance(time.Second)

	before, _ := store.ListByAccess(ctx)
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	after, _ := store.ListByAccess(ctx)

	if stats.EntryCount != 2 || stats.TotalSizeBytes != 5 {
		t.Errorf("Stats() = %+v, want 2 entries and 5 bytes", stats)
	}
	if !stats.OldestCreatedAt.Before(stats.NewestCreatedAt) {
		t.Errorf("Oldest %v should be before newest %v", stats.OldestCreatedAt, stats.NewestCreatedAt)
	}
	for i := range before {
		if !before[i].LastAccessedAt.Equal(after[i].LastAccessedAt) {
			t.Errorf("Stats() changed access time of %s", before[i].Key)
		}
	}
}

func TestClearAndDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, newMemStore(), newFakeClock(), DefaultBudgetBytes, false)

	c.Set(ctx, "a", "Kore", "gemini", []byte("a"))
	c.Set(ctx, "b", "Kore", "gemini", []byte("b"))

	if err := c.Delete(ctx, "a", "Kore", "gemini"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := c.Get(ctx, "a", "Kore", "gemini"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get(a) after Delete error = %v, want ErrMiss", err)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	stats, _ := c.Stats(ctx)
	if stats.EntryCount != 0 || stats.TotalSizeBytes != 0 {
		t.Errorf("Stats() after Clear = %+v, want empty", stats)
	}
}

func TestPruneExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestCache(t, newMemStore(), clock, DefaultBudgetBytes, false)

	c.Set(ctx, "old", "Kore", "gemini", []byte("o"))
	clock.Advance(DefaultMaxAge)
	c.Set(ctx, "new", "Kore", "gemini", []byte("n"))
	clock.Advance(time.Hour)

	removed, err := c.PruneExpired(ctx)
	if err != nil {
		t.Fatalf("PruneExpired() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("PruneExpired() = %d, want 1", removed)
	}
	if _, err := c.Get(ctx, "new", "Kore", "gemini"); err != nil {
		t.Errorf("Get(new) error = %v, want hit", err)
	}
}

func TestKeyCollisionIsMiss(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	clock := newFakeClock()
	c := newTestCache(t, store, clock, DefaultBudgetBytes, false)

	key := DeriveKey("agua", "Kore", "gemini")
	store.Put(ctx, &Entry{
		Key:            key,
		SourceText:     "something else",
		Voice:          "Kore",
		Provider:       "gemini",
		Audio:          []byte("wrong"),
		CreatedAt:      clock.Now(),
		LastAccessedAt: clock.Now(),
		SizeBytes:      5,
	})

	if _, err := c.Get(ctx, "agua", "Kore", "gemini"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() error = %v, want ErrMiss for mismatched source", err)
	}
}

func TestLongSourceTextStillHits(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c := newTestCache(t, store, newFakeClock(), DefaultBudgetBytes, false)

	text := strings.Repeat("ñandú ", 40)
	if err := c.Set(ctx, text, "Kore", "gemini", []byte("long")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	e := store.entries[DeriveKey(text, "Kore", "gemini")]
	if n := len([]rune(e.SourceText)); n != maxSourceTextRunes {
		t.Errorf("SourceText has %d runes, want %d", n, maxSourceTextRunes)
	}
	if _, err := c.Get(ctx, text, "Kore", "gemini"); err != nil {
		t.Errorf("Get() error = %v, want hit", err)
	}
}

func TestStoreFailuresAreReported(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, failingStore{}, newFakeClock(), DefaultBudgetBytes, false)

	_, err := c.Get(ctx, "a", "Kore", "gemini")
	if err == nil || errors.Is(err, ErrMiss) {
		t.Errorf("Get() error = %v, want storage error", err)
	}
	if !errors.Is(err, errStoreDown) {
		t.Errorf("Get() error = %v, should wrap the store error", err)
	}

	if err := c.Set(ctx, "a", "Kore", "gemini", []byte("a")); !errors.Is(err, errStoreDown) {
		t.Errorf("Set() error = %v, want wrapped store error", err)
	}
	if _, err := c.Stats(ctx); !errors.Is(err, errStoreDown) {
		t.Errorf("Stats() error = %v, want wrapped store error", err)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"ñandú", 2, "ña"},
		{"", 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := truncateRunes(tt.in, tt.n); got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}
