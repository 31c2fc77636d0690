package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kadromedya/statsync/internal/store"
)

func TestIsAnyMatchInWindow(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	match := func(offset time.Duration) store.UpcomingMatch {
		return store.UpcomingMatch{KickoffAt: now.Add(offset)}
	}

	tests := []struct {
		name    string
		matches []store.UpcomingMatch
		want    bool
	}{
		{"no matches", nil, false},
		{"kickoff right now", []store.UpcomingMatch{match(0)}, true},
		{"kicked off 90 minutes ago", []store.UpcomingMatch{match(-90 * time.Minute)}, true},
		{"kicks off in 45 minutes", []store.UpcomingMatch{match(45 * time.Minute)}, true},
		{"window edge, exactly 2h ago", []store.UpcomingMatch{match(-2 * time.Hour)}, true},
		{"window edge, exactly 1h ahead", []store.UpcomingMatch{match(time.Hour)}, true},
		{"too long ago", []store.UpcomingMatch{match(-3 * time.Hour)}, false},
		{"too far ahead", []store.UpcomingMatch{match(2 * time.Hour)}, false},
		{"one of many inside", []store.UpcomingMatch{match(-6 * time.Hour), match(30 * time.Minute), match(48 * time.Hour)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsAnyMatchInWindow(now, tt.matches, liveWindowBefore, liveWindowAfter)
			assert.Equal(t, tt.want, got)
		})
	}
}
