// Package loadgen submits synthetic results to a running server and checks
// that the resulting daily leaderboard honors its bound and ordering.
package loadgen

import (
	"errors"
	"time"
)

// Sentinel errors reported by Run.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrVerification = errors.New("leaderboard verification failed")
	ErrBadConfig    = errors.New("invalid load config")
)

// Config holds one load run.
type Config struct {
	BaseURL  string
	Results  int
	Users    int // distinct uids; resubmissions replace earlier rows
	Workers  int
	PageSize int
	Timeout  time.Duration
	Async    bool
	Seed     uint64

	Language string
	Mode     string
	Submode  string
}

// Validate rejects configurations that cannot produce a run.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.Join(ErrBadConfig, errors.New("base url is empty"))
	case c.Results < 1:
		return errors.Join(ErrBadConfig, errors.New("results must be positive"))
	case c.Users < 1:
		return errors.Join(ErrBadConfig, errors.New("users must be positive"))
	case c.Workers < 1:
		return errors.Join(ErrBadConfig, errors.New("workers must be positive"))
	case c.PageSize < 1:
		return errors.Join(ErrBadConfig, errors.New("page size must be positive"))
	}
	return nil
}

// Stats summarizes a run.
type Stats struct {
	Generated  int
	Ranked     int
	NotRanked  int
	Accepted   int
	Duplicates int
	Failed     int
	BoardSize  int
	MaxResults int64
	Duration   time.Duration
}
