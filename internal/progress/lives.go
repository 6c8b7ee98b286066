package progress

import "time"

// ConsumeLife spends one life. It returns false, leaving the ledger alone,
// when no lives remain. Losing the first life of a full ledger starts the
// regeneration clock, so time spent at full lives is never banked.
func ConsumeLife(l *Ledger, now time.Time) bool {
	if l.Lives <= 0 {
		return false
	}
	if l.Lives >= MaxLives {
		l.LivesLastRegenAt = now
	}
	l.Lives--
	return true
}

// RegenerateLives restores one life per LifeRegenInterval elapsed since the
// last regeneration, up to MaxLives.
func RegenerateLives(l *Ledger, now time.Time) {
	if l.LivesLastRegenAt.IsZero() {
		l.LivesLastRegenAt = now
		l.Lives = MaxLives
		return
	}
	if l.Lives >= MaxLives {
		return
	}

	livesToAdd := int(now.Sub(l.LivesLastRegenAt) / LifeRegenInterval)
	if livesToAdd <= 0 {
		return
	}
	l.Lives = min(MaxLives, l.Lives+livesToAdd)
	l.LivesLastRegenAt = now
}

// NextLifeAt returns when the next life will be restored. It returns false
// when lives are full or the regeneration clock has not started.
func NextLifeAt(l *Ledger) (time.Time, bool) {
	if l.Lives >= MaxLives || l.LivesLastRegenAt.IsZero() {
		return time.Time{}, false
	}
	return l.LivesLastRegenAt.Add(LifeRegenInterval), true
}
