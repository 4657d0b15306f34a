// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New(ctx) returns a Config populated with defaults.
//   - Load layers defaults, an optional YAML file and the environment.
//   - Load failures wrap ErrLoadConfig, validation failures ErrInvalidConfig.
package config

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/dailyboard/internal/domain/modes"
)

// Store backends.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// Store selects the ranked store backend.
	Store string `koanf:"store" validate:"oneof=redis memory"`

	// MaxRangeSize caps the number of ranks one GET may request.
	MaxRangeSize int `koanf:"max_range_size" validate:"min=1,max=5000"`

	// SweepInterval controls expiry reclamation of the memory store.
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`

	Redis             Redis             `koanf:"redis"`
	Ingest            Ingest            `koanf:"ingest"`
	DailyLeaderboards DailyLeaderboards `koanf:"daily_leaderboards"`
}

// Ingest sizes the asynchronous submission path.
type Ingest struct {
	QueueSize  int `koanf:"queue_size" validate:"min=1"`
	Workers    int `koanf:"workers" validate:"min=1"`
	DedupeSize int `koanf:"dedupe_size" validate:"min=1"`

	// DrainTimeout bounds how long queued submissions are still applied
	// after shutdown starts.
	DrainTimeout time.Duration `koanf:"drain_timeout" validate:"gt=0"`
}

// Redis holds connection settings for the redis store.
type Redis struct {
	Addr         string        `koanf:"addr"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db" validate:"min=0"`
	PingInterval time.Duration `koanf:"ping_interval" validate:"gt=0"`
	PingTimeout  time.Duration `koanf:"ping_timeout" validate:"gt=0"`
}

// DailyLeaderboards configures the daily ranking engine. It is read on every
// call, so a reload takes effect without rebuilding handles.
type DailyLeaderboards struct {
	Enabled bool `koanf:"enabled"`

	// MaxResults bounds every partition.
	MaxResults int64 `koanf:"max_results" validate:"min=1"`

	// LeaderboardExpirationTimeInDays is added to the day start to form the
	// partition expiry.
	LeaderboardExpirationTimeInDays int64 `koanf:"leaderboard_expiration_time_in_days" validate:"min=1"`

	// DailyLeaderboardCacheSize is the registry capacity.
	DailyLeaderboardCacheSize int `koanf:"daily_leaderboard_cache_size" validate:"min=1"`

	// ValidModeRules lists the eligible (language, mode, submode) patterns.
	ValidModeRules []modes.RuleConfig `koanf:"valid_mode_rules" validate:"dive"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":9080",
		Store:         StoreRedis,
		MaxRangeSize:  1_000,
		SweepInterval: time.Minute,
		Redis: Redis{
			Addr:         "localhost:6379",
			PingInterval: 5 * time.Second,
			PingTimeout:  time.Second,
		},
		Ingest: Ingest{
			QueueSize:    10_000,
			Workers:      runtime.NumCPU(),
			DedupeSize:   100_000,
			DrainTimeout: 10 * time.Second,
		},
		DailyLeaderboards: DailyLeaderboards{
			Enabled:                         true,
			MaxResults:                      1_000,
			LeaderboardExpirationTimeInDays: 2,
			DailyLeaderboardCacheSize:       1_000,
			ValidModeRules: []modes.RuleConfig{
				{Language: "english", Mode: "time", Submode: "15|60"},
			},
		},
	}
}
