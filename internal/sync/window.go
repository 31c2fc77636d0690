package sync

import (
	"time"

	"github.com/kadromedya/statsync/internal/store"
)

// Window around "now" in which a stored kickoff justifies polling the live
// fixtures API: a match that kicked off up to 2h ago may still be in play,
// one kicking off within the next hour is worth warming up for.
const (
	liveWindowBefore = 2 * time.Hour
	liveWindowAfter  = 1 * time.Hour
)

// IsAnyMatchInWindow reports whether any match's kickoff falls inside
// [now-before, now+after]. Pure: now is injected, never read inline.
func IsAnyMatchInWindow(now time.Time, matches []store.UpcomingMatch, before, after time.Duration) bool {
	from := now.Add(-before)
	to := now.Add(after)
	for _, m := range matches {
		if !m.KickoffAt.Before(from) && !m.KickoffAt.After(to) {
			return true
		}
	}
	return false
}
