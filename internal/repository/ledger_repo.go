package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lingoquest/internal/database"
	"lingoquest/internal/progress"
)

var ledgerColumns = []string{
	"learner_id", "experience", "total_experience", "level", "gems", "lives",
	"lives_last_regen_at", "streak", "last_activity_date", "updated_at",
}

// LedgerRepository is the durable store for progress ledgers
type LedgerRepository struct {
	db *database.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Load returns the stored ledger for a learner, or nil if there is none
func (r *LedgerRepository) Load(ctx context.Context, learnerID string) (*progress.Ledger, error) {
	query := `
		SELECT learner_id, experience, total_experience, level, gems, lives,
		       lives_last_regen_at, streak, last_activity_date, updated_at
		FROM progress_ledgers
		WHERE learner_id = ?
	`
	l, err := scanLedger(r.db.QueryRowContext(ctx, query, learnerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	badges, err := loadBadges(ctx, r.db, learnerID)
	if err != nil {
		return nil, err
	}
	l.UnlockedBadgeIDs = badges
	return l, nil
}

// Save writes the ledger and any newly unlocked badges in one transaction
func (r *LedgerRepository) Save(ctx context.Context, l *progress.Ledger) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		return saveLedger(ctx, tx, l)
	})
}

// SaveWith writes the ledger using an existing transaction or connection
func (r *LedgerRepository) SaveWith(ctx context.Context, q database.DBTX, l *progress.Ledger) error {
	return saveLedger(ctx, q, l)
}

func saveLedger(ctx context.Context, q database.DBTX, l *progress.Ledger) error {
	var regenAt, lastActivity sql.NullInt64
	if !l.LivesLastRegenAt.IsZero() {
		regenAt = sql.NullInt64{Int64: l.LivesLastRegenAt.UnixMilli(), Valid: true}
	}
	if l.LastActivityDate != nil {
		lastActivity = sql.NullInt64{Int64: l.LastActivityDate.UnixMilli(), Valid: true}
	}
	updatedAt := l.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	err := q.Upsert(ctx, "progress_ledgers", ledgerColumns, []string{"learner_id"}, ledgerColumns[1:],
		l.LearnerID,
		l.Experience,
		l.TotalExperience,
		l.Level,
		l.Gems,
		l.Lives,
		regenAt,
		l.Streak,
		lastActivity,
		updatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}

	// Badges are never revoked, so existing rows are left alone
	badgeColumns := []string{"learner_id", "badge_id", "unlocked_at"}
	for _, badgeID := range l.UnlockedBadgeIDs {
		err := q.Upsert(ctx, "learner_badges", badgeColumns, []string{"learner_id", "badge_id"}, nil,
			l.LearnerID, badgeID, updatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to save badge %s: %w", badgeID, err)
		}
	}
	return nil
}

func loadBadges(ctx context.Context, q database.DBTX, learnerID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT badge_id FROM learner_badges WHERE learner_id = ? ORDER BY badge_id ASC", learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query badges: %w", err)
	}
	defer rows.Close()

	badges := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Collation differs by database, so ORDER BY alone is not enough.
	return progress.SortBadgeIDs(badges), nil
}

func scanLedger(row rowScanner) (*progress.Ledger, error) {
	l := &progress.Ledger{}
	var regenAt, lastActivity sql.NullInt64
	var updatedAt int64
	if err := row.Scan(
		&l.LearnerID,
		&l.Experience,
		&l.TotalExperience,
		&l.Level,
		&l.Gems,
		&l.Lives,
		&regenAt,
		&l.Streak,
		&lastActivity,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	if regenAt.Valid {
		l.LivesLastRegenAt = time.UnixMilli(regenAt.Int64)
	}
	if lastActivity.Valid {
		t := time.UnixMilli(lastActivity.Int64)
		l.LastActivityDate = &t
	}
	l.UpdatedAt = time.UnixMilli(updatedAt)
	return l, nil
}
