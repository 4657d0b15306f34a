package daily

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/dailyboard/internal/adapters/repository"
	"github.com/okian/dailyboard/internal/config"
	"github.com/okian/dailyboard/internal/domain/modes"
	"github.com/okian/dailyboard/pkg/logger"
	"github.com/okian/dailyboard/pkg/metrics"
)

// registryState is swapped wholesale on Initialize.
type registryState struct {
	cache   *lru.Cache[string, *DailyLeaderboard]
	matcher *modes.Matcher
}

// Registry hands out DailyLeaderboard handles for eligible mode triples and
// keeps the most recently used ones in a fixed-capacity LRU. It is safe for
// concurrent use.
type Registry struct {
	store  repository.RankedStore
	opts   []Option
	state  atomic.Pointer[registryState]
	logger logger.Logger
}

// NewRegistry creates an uninitialized registry. Get returns nil until
// Initialize succeeds. opts are applied to every handle it creates.
func NewRegistry(store repository.RankedStore, opts ...Option) *Registry {
	return &Registry{
		store:  store,
		opts:   opts,
		logger: logger.Get().Named("registry"),
	}
}

// Initialize allocates a cache sized from cfg and compiles its mode rules,
// replacing any previous cache.
func (r *Registry) Initialize(cfg *config.DailyLeaderboards) error {
	if cfg == nil {
		return fmt.Errorf("initialize registry: nil config")
	}
	matcher, err := modes.NewMatcher(cfg.ValidModeRules)
	if err != nil {
		return fmt.Errorf("compile mode rules: %w", err)
	}
	cache, err := lru.NewWithEvict(cfg.DailyLeaderboardCacheSize, func(string, *DailyLeaderboard) {
		metrics.RecordRegistryEviction()
	})
	if err != nil {
		return fmt.Errorf("allocate registry cache: %w", err)
	}

	r.state.Store(&registryState{cache: cache, matcher: matcher})
	metrics.UpdateRegistrySize(0)
	r.logger.Info(context.Background(), "registry initialized",
		logger.Int("capacity", cfg.DailyLeaderboardCacheSize),
		logger.Int("rules", matcher.Len()))
	return nil
}

// Get returns the handle for the triple, creating it on first use. It returns
// nil when leaderboards are disabled, the registry is uninitialized, or the
// triple matches no configured rule.
func (r *Registry) Get(language, mode, submode string, cfg *config.DailyLeaderboards) *DailyLeaderboard {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	st := r.state.Load()
	if st == nil {
		return nil
	}
	if !st.matcher.IsValid(language, mode, submode) {
		metrics.RecordRegistryLookup(metrics.LookupRejected)
		return nil
	}

	key := ModeKey(language, mode, submode)
	if lb, ok := st.cache.Get(key); ok {
		metrics.RecordRegistryLookup(metrics.LookupHit)
		return lb
	}
	metrics.RecordRegistryLookup(metrics.LookupMiss)

	lb := New(language, mode, submode, r.store, r.opts...)
	// Concurrent misses may both construct; handles are stateless, so
	// whichever lands last is kept.
	st.cache.Add(key, lb)
	metrics.UpdateRegistrySize(st.cache.Len())
	return lb
}

// Len returns the number of cached handles.
func (r *Registry) Len() int {
	st := r.state.Load()
	if st == nil {
		return 0
	}
	return st.cache.Len()
}

// Handles returns the cached handles from most to least recently used
// without touching recency.
func (r *Registry) Handles() []*DailyLeaderboard {
	st := r.state.Load()
	if st == nil {
		return nil
	}
	keys := st.cache.Keys()
	out := make([]*DailyLeaderboard, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if lb, ok := st.cache.Peek(keys[i]); ok {
			out = append(out, lb)
		}
	}
	return out
}
