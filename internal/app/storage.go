package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"lingoquest/internal/audiocache"
	"lingoquest/internal/config"
	"lingoquest/internal/database"
	"lingoquest/internal/logger"
)

// OpenDatabase connects to the configured database and brings the schema up to date
func OpenDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.DB, error) {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	log.Info("Database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(ctx, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// AudioCache is an open cache plus whatever must be released with it
type AudioCache struct {
	*audiocache.Cache
	Backend string
	closers []func() error
}

// Close releases the cache and its store
func (a *AudioCache) Close() error {
	a.Cache.Close()
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenAudioCache builds the audio cache over the configured backend: the SQL
// database by default, or Redis when several instances share one cache.
func OpenAudioCache(ctx context.Context, cfg config.AudioCacheConfig, db *database.DB, log *logger.Logger) (*AudioCache, error) {
	log = log.With("component", "AudioCache")

	var (
		store   audiocache.Store
		closers []func() error
		backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	)
	switch backend {
	case "", "sql":
		backend = "sql"
		store = audiocache.NewSQLStore(db)
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("AUDIO_CACHE_BACKEND=redis requires REDIS_ADDR")
		}
		rs, err := audiocache.NewRedisStore(ctx, &goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis audio cache: %w", err)
		}
		store = rs
		closers = append(closers, rs.Close)
	default:
		return nil, fmt.Errorf("unsupported audio cache backend: %s", cfg.Backend)
	}

	cache, err := audiocache.New(store, audiocache.Options{
		BudgetBytes: cfg.BudgetBytes,
		MaxAge:      cfg.MaxAge,
		Compress:    cfg.Compress,
		Logger:      log,
	})
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}

	log.Info("Audio cache ready", "backend", backend, "budget_bytes", cfg.BudgetBytes, "max_age", cfg.MaxAge)
	return &AudioCache{Cache: cache, Backend: backend, closers: closers}, nil
}
