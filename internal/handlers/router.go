package handlers

import (
	"net/http"

	"lingoquest/internal/logger"
	"lingoquest/internal/security"
)

// RouterConfig carries everything the API routes need
type RouterConfig struct {
	Learners    *LearnerHandler
	Lessons     *LessonHandler
	Speech      *SpeechHandler
	Admin       *AdminHandler
	Startup     *StartupStatus
	Middleware  *Middleware
	SpeechLimit *security.RateLimiter
	Log         *logger.Logger
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	mw := cfg.Middleware

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Startup != nil {
		mux.Handle("GET /readyz", cfg.Startup)
	}

	// Learners
	mux.HandleFunc("POST /api/learners", cfg.Learners.CreateLearner)
	mux.HandleFunc("GET /api/learners/{id}/progress", mw.RequireLearner(cfg.Learners.GetProgress))
	mux.HandleFunc("POST /api/learners/{id}/lives/consume", mw.RequireLearner(cfg.Learners.ConsumeLife))
	mux.HandleFunc("POST /api/learners/{id}/lessons/complete", mw.RequireLearner(cfg.Learners.CompleteLesson))
	mux.HandleFunc("GET /api/badges", cfg.Learners.ListBadges)

	// Lessons and speech
	mux.HandleFunc("POST /api/lessons/generate", mw.RequireAuth(cfg.Lessons.GenerateLesson))
	var speak http.Handler = mw.RequireAuth(cfg.Speech.Speak)
	if cfg.SpeechLimit != nil {
		speak = cfg.SpeechLimit.Middleware(speak)
	}
	mux.Handle("GET /api/speech", speak)

	// Admin
	mux.HandleFunc("GET /admin/cache/stats", mw.RequireAdmin(cfg.Admin.CacheStats))
	mux.HandleFunc("POST /admin/cache/clear", mw.RequireAdmin(cfg.Admin.ClearCache))
	mux.HandleFunc("POST /admin/cache/prune", mw.RequireAdmin(cfg.Admin.PruneCache))
	mux.HandleFunc("GET /admin/backup", mw.RequireAdmin(cfg.Admin.ExportDatabase))
	mux.HandleFunc("POST /admin/backup", mw.RequireAdmin(cfg.Admin.ImportDatabase))

	return Recover(cfg.Log)(Logging(cfg.Log)(mux))
}
