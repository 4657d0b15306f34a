package repository

import (
	"time"

	"github.com/okian/dailyboard/pkg/logger"
)

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithSweepInterval sets how often expired keys are reclaimed.
func WithSweepInterval(interval time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithClock replaces the wall clock used for key expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSeed makes treap priorities deterministic.
func WithSeed(seed uint64) MemoryOption {
	return func(s *MemoryStore) {
		s.seed = seed
	}
}

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithPingInterval sets how often the health loop pings Redis.
func WithPingInterval(interval time.Duration) RedisOption {
	return func(s *RedisStore) {
		if interval > 0 {
			s.pingInterval = interval
		}
	}
}

// WithPingTimeout bounds a single health check.
func WithPingTimeout(timeout time.Duration) RedisOption {
	return func(s *RedisStore) {
		if timeout > 0 {
			s.pingTimeout = timeout
		}
	}
}

// WithRedisLogger sets the logger used for health transitions.
func WithRedisLogger(l logger.Logger) RedisOption {
	return func(s *RedisStore) {
		if l != nil {
			s.logger = l
		}
	}
}
