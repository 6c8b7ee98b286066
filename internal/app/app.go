// Package app wires configuration, storage, services and HTTP routes into a
// running server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"lingoquest/internal/config"
	"lingoquest/internal/database"
	"lingoquest/internal/handlers"
	"lingoquest/internal/logger"
	"lingoquest/internal/repository"
	"lingoquest/internal/security"
	"lingoquest/internal/service"
)

// tokenTTL is how long an issued API token stays valid
const tokenTTL = 30 * 24 * time.Hour

// App holds the wired server
type App struct {
	Log *logger.Logger
	Cfg *config.Config
	DB  *database.DB

	Cache    *AudioCache
	Clients  Clients
	Progress *service.ProgressService
	Speech   *service.SpeechService
	Lessons  *service.LessonService
	Email    *service.EmailService
	Backup   *service.BackupService

	Issuer      *security.TokenIssuer
	SpeechLimit *security.RateLimiter
	Router      http.Handler
}

// New opens storage and wires every service. startup may be nil.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, startup *handlers.StartupStatus) (*App, error) {
	if startup == nil {
		startup = handlers.NewStartupStatus()
	}
	a := &App{Log: log, Cfg: cfg}

	startup.SetCurrentStep("Connecting to database...")
	db, err := OpenDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.DB = db
	startup.CompleteStep(handlers.StepDatabase)
	startup.CompleteStep(handlers.StepMigrations)

	startup.SetCurrentStep("Seeding bad words filter...")
	if cfg.SeedBadWords {
		if err := db.SeedBadWords(ctx, cfg.BadWordsURL, log); err != nil {
			log.Warn("Failed to seed bad words filter", "error", err)
		}
	}
	startup.CompleteStep(handlers.StepBadWords)

	startup.SetCurrentStep("Opening audio cache...")
	cache, err := OpenAudioCache(ctx, cfg.AudioCache, db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.Cache = cache
	startup.CompleteStep(handlers.StepAudioCache)

	startup.SetCurrentStep("Initializing services...")
	if err := a.wireServices(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.Router = a.wireRouter(startup)
	startup.CompleteStep(handlers.StepServices)

	return a, nil
}

func (a *App) wireServices(ctx context.Context) error {
	cfg, log := a.Cfg, a.Log

	clients, err := WireClients(cfg.Gemini, log)
	if err != nil {
		return err
	}
	a.Clients = clients

	email, err := service.NewEmailService(ctx, cfg.Email, log)
	if err != nil {
		return err
	}
	a.Email = email

	learners := repository.NewLearnerRepository(a.DB)
	ledgers := repository.NewLedgerRepository(a.DB)
	outcomes := repository.NewOutcomeRepository(a.DB)

	var notifier service.BadgeNotifier
	if email.IsEnabled() {
		notifier = email
	}
	a.Progress = service.NewProgressService(learners, ledgers, outcomes, notifier, log)
	a.Speech = service.NewSpeechService(a.Cache, clients.Synthesizer, cfg.Gemini.DefaultVoice, cfg.Gemini.UpstreamTimeout, log)
	a.Lessons = service.NewLessonService(clients.Generator, a.DB, cfg.Gemini.UpstreamTimeout, log)
	a.Backup = service.NewBackupService(a.DB, log).WithSessions(a.Progress)

	if cfg.JWTSecret != "" {
		issuer, err := security.NewTokenIssuer(cfg.JWTSecret, tokenTTL)
		if err != nil {
			return fmt.Errorf("init token issuer: %w", err)
		}
		a.Issuer = issuer
	}
	a.SpeechLimit = security.NewRateLimiter(cfg.SpeechRatePerMinute, max(1, cfg.SpeechRatePerMinute/6))
	if err := a.SpeechLimit.TrustProxies(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("init speech rate limit: %w", err)
	}
	return nil
}

func (a *App) wireRouter(startup *handlers.StartupStatus) http.Handler {
	log := a.Log
	return handlers.NewRouter(handlers.RouterConfig{
		Learners:    handlers.NewLearnerHandler(a.Progress, a.Issuer, log),
		Lessons:     handlers.NewLessonHandler(a.Lessons, a.Progress, log),
		Speech:      handlers.NewSpeechHandler(a.Speech, log),
		Admin:       handlers.NewAdminHandler(a.Cache, a.Backup, log),
		Startup:     startup,
		Middleware:  handlers.NewMiddleware(a.Issuer, log),
		SpeechLimit: a.SpeechLimit,
		Log:         log,
	})
}

// Start runs the background workers until ctx is done
func (a *App) Start(ctx context.Context) {
	if a.Cfg.AudioCache.SweepInterval > 0 {
		a.Cache.StartSweeper(ctx, a.Cfg.AudioCache.SweepInterval)
	}
	if a.Cfg.LedgerRetryInterval > 0 {
		a.Progress.StartReconciler(ctx, a.Cfg.LedgerRetryInterval)
	}
}

// Close flushes unsaved ledgers and releases resources
func (a *App) Close() {
	if a.Progress != nil {
		if n := a.Progress.ReconcileDirty(context.Background()); n > 0 {
			a.Log.Error("Ledgers left unsaved", "count", n)
		}
		a.Progress.Wait()
	}
	if a.SpeechLimit != nil {
		a.SpeechLimit.Stop()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Log.Warn("Failed to close audio cache", "error", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
