package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/okian/dailyboard/internal/domain/modes"
	"github.com/okian/dailyboard/pkg/logger"
)

// Environment conventions.
const (
	EnvPrefix     = "DAILYBOARD_"
	EnvConfigPath = "DAILYBOARD_CONFIG"
	envNestDelim  = "__"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if DAILYBOARD_CONFIG is set
//  3. env (prefix DAILYBOARD_, "__" descends into sections)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(EnvConfigPath))
}

// LoadFile is Load with an explicit file path; an empty path skips the file
// layer.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(New(ctx), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("%w: defaults: %w", ErrLoadConfig, err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// DAILYBOARD_REDIS__PING_INTERVAL -> redis.ping_interval
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, envNestDelim, ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that every mode rule parses.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Store == StoreRedis && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr must be set for the redis store", ErrInvalidConfig)
	}
	if _, err := modes.ParseRules(c.DailyLeaderboards.ValidModeRules); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Watch reloads the configuration whenever the file at path changes and
// hands each valid result to onChange. Invalid revisions are logged and
// skipped. It blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if path == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	log := logger.Get().Named("config")
	provider := file.Provider(path)
	err := provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			log.Warn(ctx, "config watch error", logger.Error(err))
			return
		}
		cfg, err := LoadFile(ctx, path)
		if err != nil {
			log.Warn(ctx, "config reload rejected", logger.Error(err), logger.String("path", path))
			return
		}
		log.Info(ctx, "config reloaded", logger.String("path", path))
		onChange(cfg)
	})
	if err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err)
	}

	<-ctx.Done()
	_ = provider.Unwatch()
	return ctx.Err()
}
