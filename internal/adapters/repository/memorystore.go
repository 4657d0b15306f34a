package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/dailyboard/pkg/metrics"
)

// MemoryStore is an in-process RankedStore. A single mutex serializes every
// write, which makes AddResult indivisible with respect to all other callers.
// Keys expire at their absolute deadline: readers treat them as absent and a
// sweeper goroutine reclaims them.
type MemoryStore struct {
	mu       sync.RWMutex
	zsets    map[string]*sortedSet
	hashes   map[string]map[string][]byte
	expireAt map[string]int64 // unix seconds

	now           func() time.Time
	sweepInterval time.Duration
	seed          uint64
	rnd           *rand.Rand

	closed   atomic.Bool
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewMemoryStore constructs an in-memory store. Call Start to run the
// expiry sweeper; without it expired keys are only hidden, not reclaimed.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		zsets:         make(map[string]*sortedSet),
		hashes:        make(map[string]map[string][]byte),
		expireAt:      make(map[string]int64),
		now:           time.Now,
		sweepInterval: time.Minute,
		seed:          uint64(time.Now().UnixNano()),
		stopChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rnd = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	return s
}

// Start launches the background sweeper.
func (s *MemoryStore) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Serve runs the sweeper until ctx is done, for use under a supervisor.
func (s *MemoryStore) Serve(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	s.wg.Wait()
	return ctx.Err()
}

// Close stops the sweeper and rejects further commands.
func (s *MemoryStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.stopChan)
	s.wg.Wait()
	return nil
}

// Connected reports false once the store is closed.
func (s *MemoryStore) Connected(_ context.Context) bool {
	return !s.closed.Load()
}

// Sweep drops every expired key and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	removed := 0
	for key, deadline := range s.expireAt {
		if now >= deadline {
			s.dropLocked(key)
			removed++
		}
	}
	metrics.UpdateStoreKeys(len(s.zsets) + len(s.hashes))
	return removed
}

// AddResult implements RankedStore.AddResult.
func (s *MemoryStore) AddResult(_ context.Context, req AddRequest) (int64, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("add_result", float64(time.Since(start).Microseconds())/1000)
	}()

	if s.closed.Load() {
		return 0, false, ErrStoreClosed
	}
	if req.MaxResults < 1 {
		return 0, false, ErrInvalidBound
	}
	if math.IsNaN(req.Score) {
		return 0, false, fmt.Errorf("%w: %v", ErrInvalidScore, req.Score)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	s.expireLocked(req.ScoresKey, now)
	s.expireLocked(req.ResultsKey, now)

	zs, ok := s.zsets[req.ScoresKey]
	if !ok {
		zs = newSortedSet(s.rnd)
		s.zsets[req.ScoresKey] = zs
	}
	hash, ok := s.hashes[req.ResultsKey]
	if !ok {
		hash = make(map[string][]byte)
		s.hashes[req.ResultsKey] = hash
	}

	// Replace on resubmit.
	if zs.remove(req.UID) {
		delete(hash, req.UID)
	}

	zs.add(req.UID, req.Score)
	hash[req.UID] = append([]byte(nil), req.Payload...)

	evicted := 0
	for int64(zs.len()) > req.MaxResults {
		id, _ := zs.popLowest()
		delete(hash, id)
		evicted++
	}
	metrics.RecordStoreEvictions(evicted)

	rank, ok := zs.rank(req.UID)
	if !ok {
		return 0, false, nil
	}
	s.expireAt[req.ScoresKey] = req.ExpireAtUnix
	s.expireAt[req.ResultsKey] = req.ExpireAtUnix
	return int64(rank), true, nil
}

// Range implements RankedStore.Range.
func (s *MemoryStore) Range(_ context.Context, scoresKey, resultsKey string, minRank, maxRank int64) ([][]byte, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("range", float64(time.Since(start).Microseconds())/1000)
	}()

	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if minRank < 0 || maxRank < minRank {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, minRank, maxRank)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().Unix()
	zs := s.liveZSetLocked(scoresKey, now)
	if zs == nil {
		return [][]byte{}, nil
	}
	hash := s.liveHashLocked(resultsKey, now)

	ids := zs.rangeIDs(int(minRank), int(maxRank))
	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		if payload, ok := hash[id]; ok {
			out = append(out, append([]byte(nil), payload...))
		}
	}
	return out, nil
}

// RankOf implements RankedStore.RankOf.
func (s *MemoryStore) RankOf(_ context.Context, scoresKey, resultsKey, uid string) (RankLookup, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("rank_of", float64(time.Since(start).Microseconds())/1000)
	}()

	if s.closed.Load() {
		return RankLookup{}, false, ErrStoreClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().Unix()
	zs := s.liveZSetLocked(scoresKey, now)
	if zs == nil {
		return RankLookup{}, false, nil
	}
	rank, ok := zs.rank(uid)
	if !ok {
		return RankLookup{}, false, nil
	}
	payload, ok := s.liveHashLocked(resultsKey, now)[uid]
	if !ok {
		return RankLookup{}, false, nil
	}
	return RankLookup{
		Rank:    int64(rank),
		Count:   int64(zs.len()),
		Payload: append([]byte(nil), payload...),
	}, true, nil
}

// Count implements RankedStore.Count.
func (s *MemoryStore) Count(_ context.Context, scoresKey string) (int64, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	zs := s.liveZSetLocked(scoresKey, s.now().Unix())
	if zs == nil {
		return 0, nil
	}
	return int64(zs.len()), nil
}

// ExpireAt returns the absolute expiry of key, if any.
func (s *MemoryStore) ExpireAt(key string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deadline, ok := s.expireAt[key]
	return deadline, ok
}

// Scores returns a copy of the live members of a sorted set and their scores.
func (s *MemoryStore) Scores(scoresKey string) map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	zs := s.liveZSetLocked(scoresKey, s.now().Unix())
	out := make(map[string]float64)
	if zs == nil {
		return out
	}
	for id, score := range zs.scores {
		out[id] = score
	}
	return out
}

func (s *MemoryStore) liveZSetLocked(key string, now int64) *sortedSet {
	if s.expiredLocked(key, now) {
		return nil
	}
	return s.zsets[key]
}

func (s *MemoryStore) liveHashLocked(key string, now int64) map[string][]byte {
	if s.expiredLocked(key, now) {
		return nil
	}
	return s.hashes[key]
}

func (s *MemoryStore) expiredLocked(key string, now int64) bool {
	deadline, ok := s.expireAt[key]
	return ok && now >= deadline
}

// expireLocked drops key if its deadline has passed. Requires the write lock.
func (s *MemoryStore) expireLocked(key string, now int64) {
	if s.expiredLocked(key, now) {
		s.dropLocked(key)
	}
}

func (s *MemoryStore) dropLocked(key string) {
	delete(s.zsets, key)
	delete(s.hashes, key)
	delete(s.expireAt, key)
}
