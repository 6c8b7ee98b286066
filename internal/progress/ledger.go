// Package progress holds the reward rules for a learner: experience and
// levels, gems, lives and their regeneration, daily streaks and badges.
//
// Functions in this package mutate a Ledger in place and never perform I/O.
// Callers are responsible for serializing access to a single Ledger.
package progress

import (
	"fmt"
	"sort"
	"time"
)

const (
	// MaxLives is the life cap
	MaxLives = 5

	// ExperiencePerLevel is the total experience needed for each level
	ExperiencePerLevel = 500

	// LifeRegenInterval is how long one life takes to come back
	LifeRegenInterval = 4 * time.Hour
)

// Ledger is a learner's accumulated progress
type Ledger struct {
	LearnerID        string     `json:"learnerId"`
	Experience       int        `json:"experience"`
	TotalExperience  int        `json:"totalExperience"`
	Level            int        `json:"level"`
	Gems             int        `json:"gems"`
	Lives            int        `json:"lives"`
	LivesLastRegenAt time.Time  `json:"livesLastRegenAt"`
	Streak           int        `json:"streak"`
	LastActivityDate *time.Time `json:"lastActivityDate,omitempty"`
	UnlockedBadgeIDs []string   `json:"unlockedBadgeIds"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// NewLedger returns a zeroed ledger with full lives
func NewLedger(learnerID string) *Ledger {
	return &Ledger{
		LearnerID:        learnerID,
		Level:            1,
		Lives:            MaxLives,
		UnlockedBadgeIDs: []string{},
	}
}

// LevelFor returns the level reached with the given total experience
func LevelFor(totalExperience int) int {
	return totalExperience/ExperiencePerLevel + 1
}

// AddExperience credits experience and recomputes the level.
// A negative amount is a programming error and panics.
func AddExperience(l *Ledger, amount int) {
	if amount < 0 {
		panic(fmt.Sprintf("progress: negative experience %d", amount))
	}
	l.Experience += amount
	l.TotalExperience += amount
	l.Level = LevelFor(l.TotalExperience)
}

// AddGems credits gems. A negative amount panics.
func AddGems(l *Ledger, amount int) {
	if amount < 0 {
		panic(fmt.Sprintf("progress: negative gems %d", amount))
	}
	l.Gems += amount
}

// SortBadgeIDs sorts ids in place and drops duplicates. Ledgers read from
// storage or a backup go through it before HasBadge is used.
func SortBadgeIDs(ids []string) []string {
	sort.Strings(ids)
	out := ids[:0]
	for i, id := range ids {
		if i > 0 && id == ids[i-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

// HasBadge reports whether the badge is already unlocked
func (l *Ledger) HasBadge(id string) bool {
	i := sort.SearchStrings(l.UnlockedBadgeIDs, id)
	return i < len(l.UnlockedBadgeIDs) && l.UnlockedBadgeIDs[i] == id
}

// unlockBadge adds id to the sorted badge set and reports whether it was new
func (l *Ledger) unlockBadge(id string) bool {
	i := sort.SearchStrings(l.UnlockedBadgeIDs, id)
	if i < len(l.UnlockedBadgeIDs) && l.UnlockedBadgeIDs[i] == id {
		return false
	}
	l.UnlockedBadgeIDs = append(l.UnlockedBadgeIDs, "")
	copy(l.UnlockedBadgeIDs[i+1:], l.UnlockedBadgeIDs[i:])
	l.UnlockedBadgeIDs[i] = id
	return true
}

// Clone returns a deep copy
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.UnlockedBadgeIDs = append([]string(nil), l.UnlockedBadgeIDs...)
	if l.LastActivityDate != nil {
		t := *l.LastActivityDate
		c.LastActivityDate = &t
	}
	return &c
}
