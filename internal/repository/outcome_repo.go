package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lingoquest/internal/database"
	"lingoquest/internal/progress"
)

// OutcomeRepository stores lesson outcomes, the history badge rules look at
type OutcomeRepository struct {
	db *database.DB
}

// NewOutcomeRepository creates a new outcome repository
func NewOutcomeRepository(db *database.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Record appends an outcome and returns its row ID
func (r *OutcomeRepository) Record(ctx context.Context, learnerID string, o progress.LessonOutcome) (int64, error) {
	return r.RecordWith(ctx, r.db, learnerID, o)
}

// RecordWith appends an outcome using an existing transaction or connection
func (r *OutcomeRepository) RecordWith(ctx context.Context, q database.DBTX, learnerID string, o progress.LessonOutcome) (int64, error) {
	mistakes := o.MistakesByExerciseType
	if mistakes == nil {
		mistakes = map[string]int{}
	}
	mistakesJSON, err := json.Marshal(mistakes)
	if err != nil {
		return 0, fmt.Errorf("failed to encode mistakes: %w", err)
	}

	query := `
		INSERT INTO lesson_outcomes (learner_id, lesson_id, correct_count, total_count,
		                             time_spent_seconds, experience_earned, mistakes_json, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := q.ExecReturningID(ctx, query,
		learnerID,
		o.LessonID,
		o.CorrectCount,
		o.TotalCount,
		o.TimeSpentSeconds,
		o.ExperienceEarned,
		string(mistakesJSON),
		o.CompletedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record outcome: %w", err)
	}
	return id, nil
}

// History returns a learner's outcomes in completion order
func (r *OutcomeRepository) History(ctx context.Context, learnerID string) ([]progress.LessonOutcome, error) {
	query := `
		SELECT lesson_id, correct_count, total_count, time_spent_seconds,
		       experience_earned, mistakes_json, completed_at
		FROM lesson_outcomes
		WHERE learner_id = ?
		ORDER BY completed_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var history []progress.LessonOutcome
	for rows.Next() {
		var o progress.LessonOutcome
		var mistakesJSON string
		var completedAt int64
		if err := rows.Scan(
			&o.LessonID,
			&o.CorrectCount,
			&o.TotalCount,
			&o.TimeSpentSeconds,
			&o.ExperienceEarned,
			&mistakesJSON,
			&completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		if err := json.Unmarshal([]byte(mistakesJSON), &o.MistakesByExerciseType); err != nil {
			return nil, fmt.Errorf("failed to decode mistakes: %w", err)
		}
		o.CompletedAt = time.UnixMilli(completedAt)
		history = append(history, o)
	}
	return history, rows.Err()
}
