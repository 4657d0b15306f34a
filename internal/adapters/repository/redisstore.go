package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/dailyboard/pkg/logger"
	"github.com/okian/dailyboard/pkg/metrics"
)

//go:embed scripts/add_result.lua
var addResultLua string

//go:embed scripts/range.lua
var rangeLua string

var (
	addResultScript = redis.NewScript(addResultLua)
	rangeScript     = redis.NewScript(rangeLua)
)

// Default health check configuration.
const (
	defaultPingInterval = 5 * time.Second
	defaultPingTimeout  = time.Second
)

// RedisStore is the RankedStore backed by Redis sorted sets and hashes. The
// bounded insert runs as a Lua script, which Redis executes without
// interleaving any other command.
type RedisStore struct {
	client       redis.UniversalClient
	ready        atomic.Bool
	pingInterval time.Duration
	pingTimeout  time.Duration
	logger       logger.Logger
}

// NewRedisStore wraps client and performs one synchronous health check so
// Connected is meaningful immediately.
func NewRedisStore(ctx context.Context, client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:       client,
		pingInterval: defaultPingInterval,
		pingTimeout:  defaultPingTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("redis_store")
	}
	s.check(ctx)
	return s
}

// Serve runs the health loop until ctx is done.
func (s *RedisStore) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check pings Redis and records readiness, logging transitions.
func (s *RedisStore) check(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()

	err := s.client.Ping(pingCtx).Err()
	ok := err == nil
	was := s.ready.Swap(ok)
	metrics.UpdateStoreConnected(ok)

	switch {
	case ok && !was:
		s.logger.Info(ctx, "redis reachable")
	case !ok && was:
		s.logger.Warn(ctx, "redis unreachable; daily leaderboards fail open", logger.Error(err))
	}
	return ok
}

// Connected implements RankedStore.Connected from the cached health state.
func (s *RedisStore) Connected(_ context.Context) bool {
	return s.ready.Load()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	s.ready.Store(false)
	return s.client.Close()
}

// AddResult implements RankedStore.AddResult.
func (s *RedisStore) AddResult(ctx context.Context, req AddRequest) (int64, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("add_result", float64(time.Since(start).Microseconds())/1000)
	}()

	if req.MaxResults < 1 {
		return 0, false, ErrInvalidBound
	}
	if math.IsNaN(req.Score) {
		return 0, false, fmt.Errorf("%w: %v", ErrInvalidScore, req.Score)
	}

	reply, err := addResultScript.Run(ctx, s.client,
		[]string{req.ScoresKey, req.ResultsKey},
		req.MaxResults,
		req.ExpireAtUnix,
		req.UID,
		strconv.FormatFloat(req.Score, 'f', -1, 64),
		req.Payload,
	).Int64Slice()
	if err != nil {
		metrics.RecordStoreError("add_result")
		return 0, false, fmt.Errorf("add result script: %w", err)
	}
	if len(reply) != 2 {
		metrics.RecordStoreError("add_result")
		return 0, false, fmt.Errorf("%w: add result returned %d values", ErrUnexpectedReply, len(reply))
	}

	metrics.RecordStoreEvictions(int(reply[1]))
	if reply[0] < 0 {
		return 0, false, nil
	}
	return reply[0], true, nil
}

// Range implements RankedStore.Range.
func (s *RedisStore) Range(ctx context.Context, scoresKey, resultsKey string, minRank, maxRank int64) ([][]byte, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("range", float64(time.Since(start).Microseconds())/1000)
	}()

	if minRank < 0 || maxRank < minRank {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, minRank, maxRank)
	}

	reply, err := rangeScript.Run(ctx, s.client, []string{scoresKey, resultsKey}, minRank, maxRank).Slice()
	if err != nil {
		metrics.RecordStoreError("range")
		return nil, fmt.Errorf("range script: %w", err)
	}

	out := make([][]byte, 0, len(reply))
	for _, v := range reply {
		switch payload := v.(type) {
		case nil:
			// member without a payload; skip like a missing hash field
		case string:
			out = append(out, []byte(payload))
		default:
			metrics.RecordStoreError("range")
			return nil, fmt.Errorf("%w: range element of type %T", ErrUnexpectedReply, v)
		}
	}
	return out, nil
}

// RankOf implements RankedStore.RankOf as a single MULTI/EXEC round trip.
func (s *RedisStore) RankOf(ctx context.Context, scoresKey, resultsKey, uid string) (RankLookup, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("rank_of", float64(time.Since(start).Microseconds())/1000)
	}()

	var (
		rankCmd  *redis.IntCmd
		countCmd *redis.IntCmd
		entryCmd *redis.StringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		rankCmd = p.ZRevRank(ctx, scoresKey, uid)
		countCmd = p.ZCard(ctx, scoresKey)
		entryCmd = p.HGet(ctx, resultsKey, uid)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		metrics.RecordStoreError("rank_of")
		return RankLookup{}, false, fmt.Errorf("rank pipeline: %w", err)
	}

	rank, err := rankCmd.Result()
	if errors.Is(err, redis.Nil) {
		return RankLookup{}, false, nil
	}
	if err != nil {
		metrics.RecordStoreError("rank_of")
		return RankLookup{}, false, fmt.Errorf("zrevrank: %w", err)
	}
	payload, err := entryCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return RankLookup{}, false, nil
	}
	if err != nil {
		metrics.RecordStoreError("rank_of")
		return RankLookup{}, false, fmt.Errorf("hget: %w", err)
	}
	count, err := countCmd.Result()
	if err != nil {
		metrics.RecordStoreError("rank_of")
		return RankLookup{}, false, fmt.Errorf("zcard: %w", err)
	}
	return RankLookup{Rank: rank, Count: count, Payload: payload}, true, nil
}

// Count implements RankedStore.Count.
func (s *RedisStore) Count(ctx context.Context, scoresKey string) (int64, error) {
	n, err := s.client.ZCard(ctx, scoresKey).Result()
	if err != nil {
		metrics.RecordStoreError("count")
		return 0, fmt.Errorf("zcard: %w", err)
	}
	return n, nil
}
