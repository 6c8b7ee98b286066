package progress

import (
	"errors"
	"time"
)

// ErrClockSkew is returned by UpdateStreak when the last activity is dated
// after now. The streak is reset; callers should log it.
var ErrClockSkew = errors.New("last activity is in the future")

// UpdateStreak records activity at now. Dates are compared as calendar days
// in now's location: the same day keeps the streak, the next day extends it
// and any gap restarts it at 1.
func UpdateStreak(l *Ledger, now time.Time) error {
	var err error

	if l.LastActivityDate == nil {
		l.Streak = 1
	} else {
		switch diff := calendarDaysBetween(*l.LastActivityDate, now); {
		case diff == 0:
			// Already counted today.
		case diff == 1:
			l.Streak++
		case diff < 0:
			l.Streak = 1
			err = ErrClockSkew
		default:
			l.Streak = 1
		}
	}

	activity := now
	l.LastActivityDate = &activity
	return err
}

// calendarDaysBetween counts calendar days from a to b in b's location
func calendarDaysBetween(a, b time.Time) int {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	// Compare at UTC midnight so DST transitions do not shorten a day.
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
