// Package daily implements per-day leaderboards partitioned by language,
// mode and submode, and the registry that hands out their handles.
package daily

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/dailyboard/internal/adapters/repository"
	"github.com/okian/dailyboard/internal/config"
	"github.com/okian/dailyboard/internal/domain/model"
	"github.com/okian/dailyboard/pkg/logger"
	"github.com/okian/dailyboard/pkg/metrics"
)

// NotRanked is returned by AddResult when nothing was ranked: the feature is
// off, the store is unreachable, or the entry fell off the board.
const NotRanked = -1

// DailyLeaderboard is a stateless handle on one mode triple. Keys are derived
// per call, so the same handle serves every day.
type DailyLeaderboard struct {
	language string
	mode     string
	submode  string

	store      repository.RankedStore
	keyRoot    string
	customTime *int64
	now        func() time.Time
	logger     logger.Logger
}

// New returns a handle for the given mode triple.
func New(language, mode, submode string, store repository.RankedStore, opts ...Option) *DailyLeaderboard {
	lb := &DailyLeaderboard{
		language: language,
		mode:     mode,
		submode:  submode,
		store:    store,
		keyRoot:  DefaultKeyRoot,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(lb)
	}
	if lb.logger == nil {
		lb.logger = logger.Get().Named("daily")
	}
	return lb
}

func (lb *DailyLeaderboard) Language() string { return lb.language }
func (lb *DailyLeaderboard) Mode() string     { return lb.mode }
func (lb *DailyLeaderboard) Submode() string  { return lb.submode }

// available reports whether a call should reach the store.
func (lb *DailyLeaderboard) available(ctx context.Context, cfg *config.DailyLeaderboards, op string) bool {
	if cfg == nil || !cfg.Enabled {
		return false
	}
	if !lb.store.Connected(ctx) {
		metrics.RecordFailOpen(op)
		lb.logger.Warn(ctx, "ranked store unavailable",
			logger.String("operation", op),
			logger.String("mode", ModeKey(lb.language, lb.mode, lb.submode)))
		return false
	}
	return true
}

// AddResult stores entry in today's partition and returns its 1-based rank,
// or NotRanked. A later submission replaces an earlier one for the same uid.
func (lb *DailyLeaderboard) AddResult(ctx context.Context, entry model.LeaderboardEntry, cfg *config.DailyLeaderboards) (int, error) {
	if !lb.available(ctx, cfg, "add_result") {
		metrics.RecordResultAdded(metrics.OutcomeSkipped)
		return NotRanked, nil
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return NotRanked, fmt.Errorf("%w: %w", ErrEncodeEntry, err)
	}

	keys := lb.ComputeKeys()
	rank, retained, err := lb.store.AddResult(ctx, repository.AddRequest{
		ScoresKey:    keys.ScoresKey,
		ResultsKey:   keys.ResultsKey,
		MaxResults:   cfg.MaxResults,
		ExpireAtUnix: ExpireAtUnix(keys.DayTimestamp, cfg.LeaderboardExpirationTimeInDays),
		UID:          entry.UID,
		Score:        entry.WPM,
		Payload:      payload,
	})
	if err != nil {
		return NotRanked, fmt.Errorf("%w: add result: %w", ErrStore, err)
	}
	if !retained {
		metrics.RecordResultAdded(metrics.OutcomeNotRetained)
		return NotRanked, nil
	}
	metrics.RecordResultAdded(metrics.OutcomeRanked)
	return int(rank) + 1, nil
}

// GetResults returns native ranks [minRank, maxRank] (0-based, inclusive) of
// today's partition in display order. Display ranks are minRank+i+1.
func (lb *DailyLeaderboard) GetResults(ctx context.Context, minRank, maxRank int, cfg *config.DailyLeaderboards) ([]model.RankedEntry, error) {
	if minRank < 0 || maxRank < minRank {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, minRank, maxRank)
	}
	if !lb.available(ctx, cfg, "get_results") {
		return []model.RankedEntry{}, nil
	}

	keys := lb.ComputeKeys()
	payloads, err := lb.store.Range(ctx, keys.ScoresKey, keys.ResultsKey, int64(minRank), int64(maxRank))
	if err != nil {
		return nil, fmt.Errorf("%w: range: %w", ErrStore, err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(payloads))
	for _, p := range payloads {
		var e model.LeaderboardEntry
		if err := json.Unmarshal(p, &e); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecodeEntry, err)
		}
		entries = append(entries, e)
	}
	model.SortEntries(entries)

	out := make([]model.RankedEntry, len(entries))
	for i, e := range entries {
		out[i] = model.RankedEntry{Rank: minRank + i + 1, LeaderboardEntry: e}
	}
	return out, nil
}

// GetRank returns uid's 1-based native rank, the partition size and the
// stored entry, or nil when uid is not on today's board.
func (lb *DailyLeaderboard) GetRank(ctx context.Context, uid string, cfg *config.DailyLeaderboards) (*model.RankedEntry, error) {
	if !lb.available(ctx, cfg, "get_rank") {
		return nil, nil
	}

	keys := lb.ComputeKeys()
	lookup, ok, err := lb.store.RankOf(ctx, keys.ScoresKey, keys.ResultsKey, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: rank: %w", ErrStore, err)
	}
	if !ok {
		return nil, nil
	}

	var e model.LeaderboardEntry
	if err := json.Unmarshal(lookup.Payload, &e); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeEntry, err)
	}
	return &model.RankedEntry{
		Rank:             int(lookup.Rank) + 1,
		Count:            lookup.Count,
		LeaderboardEntry: e,
	}, nil
}

// GetCount returns the size of today's partition, 0 when unavailable.
func (lb *DailyLeaderboard) GetCount(ctx context.Context, cfg *config.DailyLeaderboards) (int64, error) {
	if !lb.available(ctx, cfg, "get_count") {
		return 0, nil
	}
	n, err := lb.store.Count(ctx, lb.ComputeKeys().ScoresKey)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrStore, err)
	}
	return n, nil
}
