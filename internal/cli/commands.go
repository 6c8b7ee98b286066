package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lingoquest/internal/security"
	"lingoquest/internal/service"
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(backupCmd)

	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cachePruneCmd)
	tokenCmd.AddCommand(tokenMintCmd)
	backupCmd.AddCommand(backupExportCmd, backupImportCmd)

	cacheClearCmd.Flags().Bool("yes", false, "Skip the confirmation check")

	tokenMintCmd.Flags().String("subject", "", "Learner ID (or operator name for admin tokens)")
	tokenMintCmd.Flags().String("role", security.RoleLearner, "Token role: learner or admin")
	tokenMintCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	tokenMintCmd.MarkFlagRequired("subject")

	backupExportCmd.Flags().StringP("output", "o", "", "Output file path (default: lingoquest_backup_YYYYMMDD_HHMMSS.json)")
	backupImportCmd.Flags().StringP("input", "i", "", "Backup file to restore")
	backupImportCmd.MarkFlagRequired("input")
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the audio cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show audio cache usage",
	Args:  cobra.NoArgs,
	RunE:  handleCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached clip",
	Args:  cobra.NoArgs,
	RunE:  handleCacheClear,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove clips older than the configured max age",
	Args:  cobra.NoArgs,
	RunE:  handleCachePrune,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens",
}

var tokenMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a signed API token with JWT_SECRET",
	Args:  cobra.NoArgs,
	RunE:  handleTokenMint,
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or restore learner progress",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every learner, ledger and lesson history to a JSON file",
	Args:  cobra.NoArgs,
	RunE:  handleBackupExport,
}

var backupImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore learners from a JSON backup, overwriting matching IDs",
	Args:  cobra.NoArgs,
	RunE:  handleBackupImport,
}

func handleCacheStats(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	cache, closeAll, err := e.openCache(cmd.Context())
	if err != nil {
		return err
	}
	defer closeAll()

	stats, err := cache.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("read cache stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend:  %s\n", cache.Backend)
	fmt.Fprintf(out, "Entries:  %s\n", humanize.Comma(int64(stats.EntryCount)))
	fmt.Fprintf(out, "Size:     %s of %s", humanize.IBytes(uint64(stats.TotalSizeBytes)), humanize.IBytes(uint64(cache.Budget())))
	if budget := cache.Budget(); budget > 0 {
		fmt.Fprintf(out, " (%.1f%%)", float64(stats.TotalSizeBytes)*100/float64(budget))
	}
	fmt.Fprintln(out)
	if stats.EntryCount > 0 {
		fmt.Fprintf(out, "Oldest:   %s\n", humanize.Time(stats.OldestCreatedAt))
		fmt.Fprintf(out, "Newest:   %s\n", humanize.Time(stats.NewestCreatedAt))
	}
	return nil
}

func handleCacheClear(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		return fmt.Errorf("refusing to clear the audio cache without --yes")
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	cache, closeAll, err := e.openCache(cmd.Context())
	if err != nil {
		return err
	}
	defer closeAll()

	if err := cache.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Audio cache cleared")
	return nil
}

func handleCachePrune(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	cache, closeAll, err := e.openCache(cmd.Context())
	if err != nil {
		return err
	}
	defer closeAll()

	removed, err := cache.PruneExpired(cmd.Context())
	if err != nil {
		return fmt.Errorf("prune cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired %s\n", removed, pluralize(removed, "clip", "clips"))
	return nil
}

func handleTokenMint(cmd *cobra.Command, args []string) error {
	subject, _ := cmd.Flags().GetString("subject")
	role, _ := cmd.Flags().GetString("role")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	if role != security.RoleLearner && role != security.RoleAdmin {
		return fmt.Errorf("invalid role %q: use %s or %s", role, security.RoleLearner, security.RoleAdmin)
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	issuer, err := security.NewTokenIssuer(e.cfg.JWTSecret, ttl)
	if err != nil {
		return fmt.Errorf("JWT_SECRET must be set to mint tokens: %w", err)
	}
	token, err := issuer.Issue(subject, role)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func handleBackupExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = fmt.Sprintf("lingoquest_backup_%s.json", time.Now().Format("20060102_150405"))
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	db, err := e.openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := service.NewBackupService(db, e.log).Export(cmd.Context(), output); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	info, err := os.Stat(output)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s (%s)\n", output, humanize.IBytes(uint64(info.Size())))
	return nil
}

func handleBackupImport(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")

	e, err := loadEnv()
	if err != nil {
		return err
	}
	db, err := e.openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := service.NewBackupService(db, e.log).Import(cmd.Context(), input); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored backup from %s\n", input)
	return nil
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
