package progress

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidOutcome is returned by CompleteLesson for an outcome that cannot
// have come from a real lesson. The ledger is left untouched.
var ErrInvalidOutcome = errors.New("invalid lesson outcome")

// LessonOutcome is a learner's raw performance in one lesson
type LessonOutcome struct {
	LessonID               string         `json:"lessonId"`
	CorrectCount           int            `json:"correctCount"`
	TotalCount             int            `json:"totalCount"`
	TimeSpentSeconds       int            `json:"timeSpentSeconds"`
	MistakesByExerciseType map[string]int `json:"mistakesByExerciseType,omitempty"`

	// ExperienceEarned is the per-exercise experience accrued during the lesson
	ExperienceEarned int       `json:"experienceEarned"`
	CompletedAt      time.Time `json:"completedAt"`
}

// Validate checks the outcome's counts
func (o LessonOutcome) Validate() error {
	switch {
	case o.TotalCount <= 0:
		return fmt.Errorf("%w: total count must be positive, got %d", ErrInvalidOutcome, o.TotalCount)
	case o.CorrectCount < 0 || o.CorrectCount > o.TotalCount:
		return fmt.Errorf("%w: correct count %d outside 0..%d", ErrInvalidOutcome, o.CorrectCount, o.TotalCount)
	case o.TimeSpentSeconds < 0:
		return fmt.Errorf("%w: negative time spent %d", ErrInvalidOutcome, o.TimeSpentSeconds)
	case o.ExperienceEarned < 0:
		return fmt.Errorf("%w: negative experience %d", ErrInvalidOutcome, o.ExperienceEarned)
	}
	for exerciseType, n := range o.MistakesByExerciseType {
		if n < 0 {
			return fmt.Errorf("%w: negative mistakes for %q", ErrInvalidOutcome, exerciseType)
		}
	}
	return nil
}

// Percentage is the rounded share of correct answers, 0..100
func (o LessonOutcome) Percentage() int {
	if o.TotalCount <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(o.CorrectCount) / float64(o.TotalCount)))
}

// Result summarizes what a completed lesson changed
type Result struct {
	NewExperience int              `json:"newExperience"`
	NewLevel      int              `json:"newLevel"`
	NewGems       int              `json:"newGems"`
	BadgesEarned  []BadgeCondition `json:"badgesEarned"`

	Percentage  int  `json:"percentage"`
	Stars       int  `json:"stars"`
	GemsAwarded int  `json:"gemsAwarded"`
	LeveledUp   bool `json:"leveledUp"`
	Streak      int  `json:"streak"`

	// ClockSkew is set when the last activity was dated after now and the streak was reset
	ClockSkew bool `json:"-"`
}

// rewardTiers map a minimum percentage to stars and gems, highest first
var rewardTiers = []struct {
	minPercentage int
	stars         int
	gems          int
}{
	{100, 3, 15},
	{80, 2, 10},
	{50, 1, 5},
}

// Stars returns the 0..3 star rating for a percentage
func Stars(percentage int) int {
	for _, tier := range rewardTiers {
		if percentage >= tier.minPercentage {
			return tier.stars
		}
	}
	return 0
}

// GemsForPercentage returns the gem award for a percentage
func GemsForPercentage(percentage int) int {
	for _, tier := range rewardTiers {
		if percentage >= tier.minPercentage {
			return tier.gems
		}
	}
	return 0
}

// CompleteLesson applies a finished lesson to the ledger: experience, gems,
// the daily streak and any badges the new state unlocks. history holds the
// learner's earlier outcomes, oldest first, and does not include outcome.
func CompleteLesson(l *Ledger, outcome LessonOutcome, catalog []BadgeCondition, history []LessonOutcome, now time.Time) (Result, error) {
	if err := outcome.Validate(); err != nil {
		return Result{}, err
	}
	if outcome.CompletedAt.IsZero() {
		outcome.CompletedAt = now
	}

	previousLevel := l.Level
	percentage := outcome.Percentage()
	gems := GemsForPercentage(percentage)

	AddExperience(l, outcome.ExperienceEarned)
	AddGems(l, gems)

	clockSkew := errors.Is(UpdateStreak(l, now), ErrClockSkew)

	all := make([]LessonOutcome, 0, len(history)+1)
	all = append(all, history...)
	all = append(all, outcome)
	earned := EvaluateBadges(l, catalog, all)

	l.UpdatedAt = now

	return Result{
		NewExperience: l.Experience,
		NewLevel:      l.Level,
		NewGems:       l.Gems,
		BadgesEarned:  earned,
		Percentage:    percentage,
		Stars:         Stars(percentage),
		GemsAwarded:   gems,
		LeveledUp:     l.Level > previousLevel,
		Streak:        l.Streak,
		ClockSkew:     clockSkew,
	}, nil
}
