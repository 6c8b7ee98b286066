package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration
type Config struct {
	ServerPort   string `env:"PORT" envDefault:"8080"`
	DatabaseType string `env:"DB_TYPE" envDefault:"sqlite"`
	DatabasePath string `env:"DB_PATH" envDefault:"./lingoquest.db"`
	DatabaseURL  string `env:"DATABASE_URL"`
	LogMode      string `env:"LOG_MODE" envDefault:"development"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`

	AudioCache AudioCacheConfig
	Gemini     GeminiConfig
	Email      EmailConfig

	JWTSecret string `env:"JWT_SECRET"`

	BadWordsURL  string `env:"BAD_WORDS_URL" envDefault:"https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/refs/heads/master/en"`
	SeedBadWords bool   `env:"SEED_BAD_WORDS" envDefault:"true"`

	SpeechRatePerMinute int           `env:"SPEECH_RATE_PER_MINUTE" envDefault:"60"`
	LedgerRetryInterval time.Duration `env:"LEDGER_RETRY_INTERVAL" envDefault:"30s"`

	// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// AudioCacheConfig configures the synthesized speech cache.
type AudioCacheConfig struct {
	Backend       string        `env:"AUDIO_CACHE_BACKEND" envDefault:"sql"`
	BudgetBytes   int64         `env:"AUDIO_CACHE_BUDGET_BYTES" envDefault:"104857600"`
	MaxAge        time.Duration `env:"AUDIO_CACHE_MAX_AGE" envDefault:"720h"`
	Compress      bool          `env:"AUDIO_CACHE_COMPRESS" envDefault:"true"`
	SweepInterval time.Duration `env:"AUDIO_CACHE_SWEEP_INTERVAL" envDefault:"1h"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// GeminiConfig configures the generative-language collaborator.
type GeminiConfig struct {
	APIKey          string        `env:"GEMINI_API_KEY"`
	BaseURL         string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	TextModel       string        `env:"GEMINI_TEXT_MODEL" envDefault:"gemini-2.5-flash"`
	TTSModel        string        `env:"GEMINI_TTS_MODEL" envDefault:"gemini-2.5-flash-preview-tts"`
	TTSProvider     string        `env:"TTS_PROVIDER" envDefault:"gemini"`
	DefaultVoice    string        `env:"TTS_DEFAULT_VOICE" envDefault:"Kore"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
}

// EmailConfig configures badge notifications through Amazon SES.
type EmailConfig struct {
	AWSRegion  string `env:"AWS_REGION" envDefault:"us-east-1"`
	FromEmail  string `env:"SES_FROM_EMAIL"`
	FromName   string `env:"SES_FROM_NAME" envDefault:"LingoQuest"`
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
