package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lingoquest/internal/database"
	"lingoquest/internal/models"
	"lingoquest/internal/progress"
)

// LearnerRepository handles database operations for learner profiles
type LearnerRepository struct {
	db *database.DB
}

// NewLearnerRepository creates a new learner repository
func NewLearnerRepository(db *database.DB) *LearnerRepository {
	return &LearnerRepository{db: db}
}

// Create inserts a learner together with its initial ledger
func (r *LearnerRepository) Create(ctx context.Context, learner *models.Learner, ledger *progress.Ledger) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := `
			INSERT INTO learners (id, display_name, grade_level, parent_email, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query,
			learner.ID,
			learner.DisplayName,
			learner.GradeLevel,
			learner.ParentEmail,
			learner.CreatedAt.UnixMilli(),
			learner.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to create learner: %w", err)
		}
		return saveLedger(ctx, tx, ledger)
	})
}

// GetByID retrieves a learner, or nil if it does not exist
func (r *LearnerRepository) GetByID(ctx context.Context, id string) (*models.Learner, error) {
	query := `
		SELECT id, display_name, grade_level, parent_email, created_at, updated_at
		FROM learners
		WHERE id = ?
	`
	learner, err := scanLearner(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learner: %w", err)
	}
	return learner, nil
}

// List returns every learner, oldest first
func (r *LearnerRepository) List(ctx context.Context) ([]models.Learner, error) {
	query := `
		SELECT id, display_name, grade_level, parent_email, created_at, updated_at
		FROM learners
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query learners: %w", err)
	}
	defer rows.Close()

	var learners []models.Learner
	for rows.Next() {
		learner, err := scanLearner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan learner: %w", err)
		}
		learners = append(learners, *learner)
	}
	return learners, rows.Err()
}

// Upsert writes a learner row as-is. Used by backup restore.
func (r *LearnerRepository) Upsert(ctx context.Context, q database.DBTX, learner *models.Learner) error {
	columns := []string{"id", "display_name", "grade_level", "parent_email", "created_at", "updated_at"}
	err := q.Upsert(ctx, "learners", columns, []string{"id"}, columns[1:],
		learner.ID,
		learner.DisplayName,
		learner.GradeLevel,
		learner.ParentEmail,
		learner.CreatedAt.UnixMilli(),
		learner.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert learner: %w", err)
	}
	return nil
}

// Delete removes a learner; ledger, badges and outcomes cascade
func (r *LearnerRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		// MySQL and SQLite builds without foreign keys need the explicit deletes
		for _, table := range []string{"learner_badges", "lesson_outcomes", "progress_ledgers"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE learner_id = ?", id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", table, err)
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM learners WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete learner: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLearner(row rowScanner) (*models.Learner, error) {
	learner := &models.Learner{}
	var createdAt, updatedAt int64
	if err := row.Scan(
		&learner.ID,
		&learner.DisplayName,
		&learner.GradeLevel,
		&learner.ParentEmail,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	learner.CreatedAt = time.UnixMilli(createdAt)
	learner.UpdatedAt = time.UnixMilli(updatedAt)
	return learner, nil
}
