package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.AudioCache.BudgetBytes != 100*1024*1024 {
		t.Errorf("BudgetBytes = %d, want 100MB", cfg.AudioCache.BudgetBytes)
	}
	if cfg.AudioCache.MaxAge != 30*24*time.Hour {
		t.Errorf("MaxAge = %v, want 720h", cfg.AudioCache.MaxAge)
	}
	if cfg.AudioCache.Backend != "sql" {
		t.Errorf("Backend = %q, want sql", cfg.AudioCache.Backend)
	}
	if cfg.Gemini.DefaultVoice != "Kore" {
		t.Errorf("DefaultVoice = %q, want Kore", cfg.Gemini.DefaultVoice)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("AUDIO_CACHE_BUDGET_BYTES", "2048")
	t.Setenv("AUDIO_CACHE_MAX_AGE", "48h")
	t.Setenv("AUDIO_CACHE_COMPRESS", "false")
	t.Setenv("LEDGER_RETRY_INTERVAL", "5s")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.1")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("DatabaseType = %q, want postgres", cfg.DatabaseType)
	}
	if cfg.AudioCache.BudgetBytes != 2048 {
		t.Errorf("BudgetBytes = %d, want 2048", cfg.AudioCache.BudgetBytes)
	}
	if cfg.AudioCache.MaxAge != 48*time.Hour {
		t.Errorf("MaxAge = %v, want 48h", cfg.AudioCache.MaxAge)
	}
	if cfg.AudioCache.Compress {
		t.Error("Compress = true, want false")
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "192.168.1.1" {
		t.Errorf("TrustedProxies = %v", cfg.TrustedProxies)
	}
	if cfg.DBMaxOpenConns != 4 || cfg.DBMaxIdleConns != 5 || cfg.DBConnMaxLifetime != 90*time.Second {
		t.Errorf("pool = %d/%d/%v, want 4/5/1m30s", cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
	}
	if cfg.LedgerRetryInterval != 5*time.Second {
		t.Errorf("LedgerRetryInterval = %v, want 5s", cfg.LedgerRetryInterval)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("AUDIO_CACHE_BUDGET_BYTES", "lots")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for non-numeric budget")
	}
}
