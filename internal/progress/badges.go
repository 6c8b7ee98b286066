package progress

import "time"

// BadgeCondition is a badge and the rule that unlocks it
type BadgeCondition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// Predicate reports whether the badge is earned given the ledger and
	// every outcome so far, oldest first
	Predicate func(l *Ledger, history []LessonOutcome) bool `json:"-"`
}

const (
	speedReaderMinPercentage = 80
	speedReaderMaxDuration   = 60 * time.Second
)

// DefaultCatalog returns the built-in badges
func DefaultCatalog() []BadgeCondition {
	return []BadgeCondition{
		{
			ID:          "first_lesson",
			Name:        "First Steps",
			Description: "Finish your first lesson",
			Predicate: func(l *Ledger, history []LessonOutcome) bool {
				return len(history) >= 1
			},
		},
		{
			ID:          "perfect_score",
			Name:        "Perfect!",
			Description: "Answer every question in a lesson correctly",
			Predicate: func(l *Ledger, history []LessonOutcome) bool {
				for _, o := range history {
					if o.Percentage() == 100 {
						return true
					}
				}
				return false
			},
		},
		{
			ID:          "streak_3",
			Name:        "On a Roll",
			Description: "Learn three days in a row",
			Predicate:   streakAtLeast(3),
		},
		{
			ID:          "streak_7",
			Name:        "Week Warrior",
			Description: "Learn seven days in a row",
			Predicate:   streakAtLeast(7),
		},
		{
			ID:          "level_5",
			Name:        "Rising Star",
			Description: "Reach level 5",
			Predicate: func(l *Ledger, history []LessonOutcome) bool {
				return l.Level >= 5
			},
		},
		{
			ID:          "xp_1000",
			Name:        "Word Wizard",
			Description: "Earn 1000 experience points",
			Predicate: func(l *Ledger, history []LessonOutcome) bool {
				return l.TotalExperience >= 1000
			},
		},
		{
			ID:          "gem_collector",
			Name:        "Gem Collector",
			Description: "Collect 100 gems",
			Predicate: func(l *Ledger, history []LessonOutcome) bool {
				return l.Gems >= 100
			},
		},
		{
			ID:          "lessons_10",
			Name:        "Explorer",
			Description: "Finish ten lessons",
			Predicate: func(l *Ledger, history []LessonOutcome) bool {
				return len(history) >= 10
			},
		},
		{
			ID:          "speed_reader",
			Name:        "Speed Reader",
			Description: "Score 80% or more in under a minute",
			Predicate: func(l *Ledger, history []LessonOutcome) bool {
				for _, o := range history {
					spent := time.Duration(o.TimeSpentSeconds) * time.Second
					if o.TimeSpentSeconds > 0 && spent < speedReaderMaxDuration && o.Percentage() >= speedReaderMinPercentage {
						return true
					}
				}
				return false
			},
		},
		{
			ID:          "no_mistakes_3",
			Name:        "Sharp Mind",
			Description: "Three perfect lessons in a row",
			Predicate: func(l *Ledger, history []LessonOutcome) bool {
				run := 0
				for _, o := range history {
					if o.Percentage() == 100 {
						run++
						if run >= 3 {
							return true
						}
					} else {
						run = 0
					}
				}
				return false
			},
		},
	}
}

func streakAtLeast(n int) func(*Ledger, []LessonOutcome) bool {
	return func(l *Ledger, history []LessonOutcome) bool {
		return l.Streak >= n
	}
}

// FindBadge looks up a badge by ID
func FindBadge(catalog []BadgeCondition, id string) (BadgeCondition, bool) {
	for _, b := range catalog {
		if b.ID == id {
			return b, true
		}
	}
	return BadgeCondition{}, false
}

// EvaluateBadges unlocks every catalog badge whose predicate now holds and
// returns the newly unlocked ones in catalog order. Unlocked badges are
// never revoked.
func EvaluateBadges(l *Ledger, catalog []BadgeCondition, history []LessonOutcome) []BadgeCondition {
	earned := []BadgeCondition{}
	for _, badge := range catalog {
		if l.HasBadge(badge.ID) || badge.Predicate == nil {
			continue
		}
		if badge.Predicate(l, history) && l.unlockBadge(badge.ID) {
			earned = append(earned, badge)
		}
	}
	return earned
}
