package audiocache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "audiocache"

// deleteScript removes an entry and its index members, adjusting the byte counter.
var deleteScript = goredis.NewScript(`
local size = redis.call('HGET', KEYS[1], 'size_bytes')
if not size then return 0 end
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZREM', KEYS[3], ARGV[1])
redis.call('DECRBY', KEYS[4], size)
return 1
`)

// deleteIfCreatedScript is deleteScript guarded by the entry's created_at.
var deleteIfCreatedScript = goredis.NewScript(`
if redis.call('HGET', KEYS[1], 'created_at') ~= ARGV[2] then return 0 end
local size = redis.call('HGET', KEYS[1], 'size_bytes')
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZREM', KEYS[3], ARGV[1])
redis.call('DECRBY', KEYS[4], size)
return 1
`)

// putScript upserts an entry and moves the byte counter by the size difference.
var putScript = goredis.NewScript(`
local old = tonumber(redis.call('HGET', KEYS[1], 'size_bytes') or '0')
redis.call('HSET', KEYS[1],
  'source_text', ARGV[2], 'voice', ARGV[3], 'provider', ARGV[4], 'audio', ARGV[5],
  'compressed', ARGV[6], 'created_at', ARGV[7], 'last_accessed_at', ARGV[8], 'size_bytes', ARGV[9])
redis.call('ZADD', KEYS[2], ARGV[8], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[7], ARGV[1])
redis.call('INCRBY', KEYS[4], tonumber(ARGV[9]) - old)
return 1
`)

// touchScript refreshes the access time of an existing entry only.
var touchScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1], 'last_accessed_at', ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
return 1
`)

// RedisStore keeps entries in Redis so several server instances share one cache.
// Each entry is a hash; two sorted sets index it by access and creation time
// and a counter tracks the total size.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, opts *goredis.Options) (*RedisStore, error) {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreFromClient(rdb, defaultRedisPrefix), nil
}

// NewRedisStoreFromClient wraps an existing client; prefix namespaces every key
func NewRedisStoreFromClient(rdb *goredis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) entryKey(key string) string { return s.prefix + ":entry:" + key }
func (s *RedisStore) accessKey() string          { return s.prefix + ":access" }
func (s *RedisStore) createdKey() string         { return s.prefix + ":created" }
func (s *RedisStore) bytesKey() string           { return s.prefix + ":bytes" }

func (s *RedisStore) Lookup(ctx context.Context, key string) (*Entry, error) {
	fields, err := s.rdb.HGetAll(ctx, s.entryKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrMiss
	}
	e, err := parseEntryFields(key, fields)
	if err != nil {
		return nil, err
	}
	e.Audio = []byte(fields["audio"])
	return e, nil
}

func (s *RedisStore) Put(ctx context.Context, e *Entry) error {
	keys := []string{s.entryKey(e.Key), s.accessKey(), s.createdKey(), s.bytesKey()}
	err := putScript.Run(ctx, s.rdb, keys,
		e.Key,
		e.SourceText,
		e.Voice,
		e.Provider,
		e.Audio,
		strconv.FormatBool(e.Compressed),
		e.CreatedAt.UnixMilli(),
		e.LastAccessedAt.UnixMilli(),
		e.SizeBytes,
	).Err()
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

func (s *RedisStore) Touch(ctx context.Context, key string, at time.Time) error {
	err := touchScript.Run(ctx, s.rdb, []string{s.entryKey(key), s.accessKey()}, key, at.UnixMilli()).Err()
	if err != nil {
		return fmt.Errorf("redis touch: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	keys := []string{s.entryKey(key), s.accessKey(), s.createdKey(), s.bytesKey()}
	if err := deleteScript.Run(ctx, s.rdb, keys, key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteIfCreated(ctx context.Context, key string, createdAt time.Time) error {
	keys := []string{s.entryKey(key), s.accessKey(), s.createdKey(), s.bytesKey()}
	err := deleteIfCreatedScript.Run(ctx, s.rdb, keys, key, createdAt.UnixMilli()).Err()
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (s *RedisStore) TotalSize(ctx context.Context) (int64, error) {
	total, err := s.rdb.Get(ctx, s.bytesKey()).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get size: %w", err)
	}
	return total, nil
}

// ListByAccess relies on sorted sets ordering equal scores by member.
func (s *RedisStore) ListByAccess(ctx context.Context) ([]Entry, error) {
	keys, err := s.rdb.ZRange(ctx, s.accessKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrange: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	metaFields := []string{"source_text", "voice", "provider", "compressed", "created_at", "last_accessed_at", "size_bytes"}
	cmds := make([]*goredis.SliceCmd, len(keys))
	_, err = s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HMGet(ctx, s.entryKey(key), metaFields...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis hmget: %w", err)
	}

	entries := make([]Entry, 0, len(keys))
	for i, cmd := range cmds {
		values := cmd.Val()
		fields := make(map[string]string, len(metaFields))
		for j, name := range metaFields {
			if v, ok := values[j].(string); ok {
				fields[name] = v
			}
		}
		if fields["size_bytes"] == "" {
			// Deleted between the range and the read.
			continue
		}
		e, err := parseEntryFields(keys[i], fields)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

func (s *RedisStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := s.rdb.ZRangeByScore(ctx, s.createdKey(), &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zrangebyscore: %w", err)
	}
	for i, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	var countCmd *goredis.IntCmd
	var oldestCmd, newestCmd *goredis.ZSliceCmd
	_, err := s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		countCmd = pipe.ZCard(ctx, s.createdKey())
		oldestCmd = pipe.ZRangeWithScores(ctx, s.createdKey(), 0, 0)
		newestCmd = pipe.ZRangeWithScores(ctx, s.createdKey(), -1, -1)
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("redis stats: %w", err)
	}

	total, err := s.TotalSize(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{EntryCount: int(countCmd.Val()), TotalSizeBytes: total}
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		stats.OldestCreatedAt = time.UnixMilli(int64(oldest[0].Score))
	}
	if newest := newestCmd.Val(); len(newest) > 0 {
		stats.NewestCreatedAt = time.UnixMilli(int64(newest[0].Score))
	}
	return stats, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.rdb.ZRange(ctx, s.createdKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis zrange: %w", err)
	}

	toDelete := make([]string, 0, len(keys)+3)
	for _, key := range keys {
		toDelete = append(toDelete, s.entryKey(key))
	}
	toDelete = append(toDelete, s.accessKey(), s.createdKey(), s.bytesKey())

	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, toDelete...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

func parseEntryFields(key string, fields map[string]string) (*Entry, error) {
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad created_at for %s: %w", key, err)
	}
	accessed, err := strconv.ParseInt(fields["last_accessed_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad last_accessed_at for %s: %w", key, err)
	}
	size, err := strconv.ParseInt(fields["size_bytes"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad size_bytes for %s: %w", key, err)
	}
	compressed, _ := strconv.ParseBool(fields["compressed"])

	return &Entry{
		Key:            key,
		SourceText:     fields["source_text"],
		Voice:          fields["voice"],
		Provider:       fields["provider"],
		Compressed:     compressed,
		CreatedAt:      time.UnixMilli(created),
		LastAccessedAt: time.UnixMilli(accessed),
		SizeBytes:      size,
	}, nil
}
