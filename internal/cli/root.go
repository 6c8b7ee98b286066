// Package cli implements lingoctl, the operator CLI for a LingoQuest deployment.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lingoquest/internal/app"
	"lingoquest/internal/config"
	"lingoquest/internal/database"
	"lingoquest/internal/logger"
)

// Global flags
var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "lingoctl",
	Short:         "lingoctl – operate a LingoQuest server",
	Long:          `Inspect the audio cache, mint API tokens and back up learner progress using the server's environment configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose debug output to stderr")
}

// env is what every command needs from the server's configuration
type env struct {
	cfg *config.Config
	log *logger.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !verbose {
		return &env{cfg: cfg, log: logger.Nop()}, nil
	}
	log, err := logger.New("development")
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log}, nil
}

func (e *env) openDatabase(ctx context.Context) (*database.DB, error) {
	return app.OpenDatabase(ctx, e.cfg, e.log)
}

// openCache opens the configured audio cache. The returned func closes both
// the cache and the database behind it.
func (e *env) openCache(ctx context.Context) (*app.AudioCache, func(), error) {
	db, err := e.openDatabase(ctx)
	if err != nil {
		return nil, nil, err
	}
	cache, err := app.OpenAudioCache(ctx, e.cfg.AudioCache, db, e.log)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return cache, func() {
		cache.Close()
		db.Close()
	}, nil
}
