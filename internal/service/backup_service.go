package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"lingoquest/internal/database"
	"lingoquest/internal/logger"
	"lingoquest/internal/models"
	"lingoquest/internal/progress"
	"lingoquest/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string          `json:"version"`
	ExportedAt   time.Time       `json:"exported_at"`
	DatabaseType string          `json:"database_type"`
	Learners     []LearnerBackup `json:"learners"`
}

// LearnerBackup is one learner with everything that hangs off it
type LearnerBackup struct {
	Learner  models.Learner           `json:"learner"`
	Ledger   *progress.Ledger         `json:"ledger"`
	Outcomes []progress.LessonOutcome `json:"outcomes"`
}

// SessionInvalidator drops cached per-learner state after a restore
type SessionInvalidator interface {
	Forget(learnerID string)
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db       *database.DB
	learners *repository.LearnerRepository
	ledgers  *repository.LedgerRepository
	outcomes *repository.OutcomeRepository
	sessions SessionInvalidator
	log      *logger.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log *logger.Logger) *BackupService {
	return &BackupService{
		db:       db,
		learners: repository.NewLearnerRepository(db),
		ledgers:  repository.NewLedgerRepository(db),
		outcomes: repository.NewOutcomeRepository(db),
		log:      log.With("service", "BackupService"),
	}
}

// WithSessions makes imports invalidate the restored learners' sessions, so
// a running server does not overwrite restored rows with its cached ledgers.
func (s *BackupService) WithSessions(sessions SessionInvalidator) *BackupService {
	s.sessions = sessions
	return s
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}
	s.log.Info("Database exported", "path", outputPath)
	return nil
}

// ExportToWriter writes a JSON backup of every learner
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now(),
		DatabaseType: "universal",
	}

	learners, err := s.learners.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to export learners: %w", err)
	}
	for _, learner := range learners {
		ledger, err := s.ledgers.Load(ctx, learner.ID)
		if err != nil {
			return fmt.Errorf("failed to export ledger for %s: %w", learner.ID, err)
		}
		outcomes, err := s.outcomes.History(ctx, learner.ID)
		if err != nil {
			return fmt.Errorf("failed to export outcomes for %s: %w", learner.ID, err)
		}
		backup.Learners = append(backup.Learners, LearnerBackup{
			Learner:  learner,
			Ledger:   ledger,
			Outcomes: outcomes,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("Export complete", "learners", len(backup.Learners))
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores learners from a backup. Existing learners with
// the same ID are overwritten, including their lesson history.
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.log.Info("Importing backup", "exported_at", backup.ExportedAt, "learners", len(backup.Learners))

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, lb := range backup.Learners {
			if err := s.importLearner(ctx, tx, lb); err != nil {
				return fmt.Errorf("failed to import learner %s: %w", lb.Learner.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.sessions != nil {
		for _, lb := range backup.Learners {
			s.sessions.Forget(lb.Learner.ID)
		}
	}

	s.log.Info("Import complete")
	return nil
}

func (s *BackupService) importLearner(ctx context.Context, tx *database.Tx, lb LearnerBackup) error {
	if err := s.learners.Upsert(ctx, tx, &lb.Learner); err != nil {
		return err
	}

	ledger := lb.Ledger
	if ledger == nil {
		ledger = progress.NewLedger(lb.Learner.ID)
	}
	ledger.LearnerID = lb.Learner.ID
	ledger.UnlockedBadgeIDs = progress.SortBadgeIDs(ledger.UnlockedBadgeIDs)
	if err := s.ledgers.SaveWith(ctx, tx, ledger); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM lesson_outcomes WHERE learner_id = ?", lb.Learner.ID); err != nil {
		return fmt.Errorf("failed to clear outcomes: %w", err)
	}
	for _, o := range lb.Outcomes {
		if _, err := s.outcomes.RecordWith(ctx, tx, lb.Learner.ID, o); err != nil {
			return err
		}
	}
	return nil
}
