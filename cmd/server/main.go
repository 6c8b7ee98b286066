package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"lingoquest/internal/app"
	"lingoquest/internal/config"
	"lingoquest/internal/handlers"
	"lingoquest/internal/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Serve probes while storage and services come up.
	startup := handlers.NewStartupStatus()
	gate := &gateHandler{startup: startup}

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:              addr,
		Handler:           gate,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Gemini.UpstreamTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "addr", addr, "database", cfg.DatabaseType)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	a, err := app.New(ctx, cfg, log, startup)
	if err != nil {
		log.Fatal("Failed to start application", "error", err)
	}
	a.Start(ctx)
	gate.ready.Store(&a.Router)
	startup.MarkReady()
	log.Info("Application ready", "audio_cache", a.Cache.Backend, "budget", a.Cache.Budget())

	select {
	case <-ctx.Done():
		log.Info("Server shutting down...")
	case err := <-serverErr:
		log.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
	a.Close()
	log.Info("Server stopped")
}

// gateHandler answers probes from the startup status until the router is ready.
type gateHandler struct {
	startup *handlers.StartupStatus
	ready   atomic.Pointer[http.Handler]
}

func (g *gateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h := g.ready.Load(); h != nil {
		(*h).ServeHTTP(w, r)
		return
	}
	g.startup.ServeHTTP(w, r)
}
