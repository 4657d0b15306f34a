package daily

import (
	"time"

	"github.com/okian/dailyboard/pkg/logger"
)

// Option configures a DailyLeaderboard.
type Option func(*DailyLeaderboard)

// WithCustomTime pins the handle to the day containing ms (epoch millis).
func WithCustomTime(ms int64) Option {
	return func(lb *DailyLeaderboard) {
		lb.customTime = &ms
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(lb *DailyLeaderboard) {
		if now != nil {
			lb.now = now
		}
	}
}

// WithKeyRoot overrides DefaultKeyRoot.
func WithKeyRoot(root string) Option {
	return func(lb *DailyLeaderboard) {
		if root != "" {
			lb.keyRoot = root
		}
	}
}

// WithLogger sets the handle's logger.
func WithLogger(l logger.Logger) Option {
	return func(lb *DailyLeaderboard) {
		if l != nil {
			lb.logger = l
		}
	}
}
