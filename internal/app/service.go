// Package service wires the ranked store, the leaderboard registry and the
// ingest pipeline behind the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/dailyboard/internal/adapters/mq/queue"
	"github.com/okian/dailyboard/internal/adapters/mq/worker"
	"github.com/okian/dailyboard/internal/adapters/repository"
	"github.com/okian/dailyboard/internal/config"
	"github.com/okian/dailyboard/internal/domain/daily"
	"github.com/okian/dailyboard/internal/domain/dedupe"
	"github.com/okian/dailyboard/internal/domain/model"
	"github.com/okian/dailyboard/pkg/logger"
	"github.com/okian/dailyboard/pkg/metrics"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Service implements the API dependencies for daily leaderboards.
type Service struct {
	cfg      atomic.Pointer[config.Config]
	store    repository.RankedStore
	registry *daily.Registry

	queue   *queue.InMemoryQueue
	deduper dedupe.Deduper
	pool    *worker.Pool

	handleOpts []daily.Option
	storeName  string
	startedAt  time.Time
	logger     logger.Logger
}

// New builds a Service over store and initializes the registry from cfg.
func New(cfg *config.Config, store repository.RankedStore, opts ...Option) (*Service, error) {
	s := &Service{
		store:     store,
		storeName: cfg.Store,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.registry = daily.NewRegistry(store, s.handleOpts...)
	if err := s.registry.Initialize(&cfg.DailyLeaderboards); err != nil {
		return nil, err
	}
	s.cfg.Store(cfg)

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(cfg.Ingest.QueueSize))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.Ingest.DedupeSize))
	s.pool = worker.NewPool(cfg.Ingest.Workers, s.queue, s,
		worker.WithDrainTimeout(cfg.Ingest.DrainTimeout),
		worker.WithOnFailure(s.forget))

	s.logger.Info(context.Background(), "service ready",
		logger.String("store", s.storeName),
		logger.Bool("daily_leaderboards", cfg.DailyLeaderboards.Enabled),
		logger.Int("ingest_workers", s.pool.Size()))
	return s, nil
}

// Config returns the active configuration.
func (s *Service) Config() *config.Config {
	return s.cfg.Load()
}

// Registry exposes the handle registry.
func (s *Service) Registry() *daily.Registry {
	return s.registry
}

// Serve runs the ingest workers. When ctx ends the queue is closed and what
// it still holds is applied, bounded by Ingest.DrainTimeout, before Serve
// returns.
func (s *Service) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.queue.Close() })
	defer stop()
	return s.pool.Serve(ctx)
}

// Close stops admitting asynchronous submissions. A running Serve applies
// the queued ones and returns.
func (s *Service) Close() error {
	return s.queue.Close()
}

// forget drops the fingerprint of a submission the workers failed to apply,
// so a client retry is not rejected as a duplicate.
func (s *Service) forget(ctx context.Context, sub model.ResultSubmission, _ error) { //nolint:gocritic // hugeParam: matches worker.FailureFunc
	s.deduper.Unrecord(ctx, sub.Fingerprint())
}

// Reload swaps in cfg and rebuilds the registry wholesale.
func (s *Service) Reload(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.registry.Initialize(&cfg.DailyLeaderboards); err != nil {
		return err
	}
	s.cfg.Store(cfg)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		s.logger.Warn(ctx, "keeping log level", logger.Error(err))
	}
	s.logger.Info(ctx, "configuration applied",
		logger.Bool("daily_leaderboards", cfg.DailyLeaderboards.Enabled),
		logger.Int64("max_results", cfg.DailyLeaderboards.MaxResults))
	return nil
}

// handle resolves the leaderboard of a mode triple. A nil handle with a nil
// error means the feature is off.
func (s *Service) handle(language, mode, submode string) (*daily.DailyLeaderboard, *config.DailyLeaderboards, error) {
	cfg := &s.cfg.Load().DailyLeaderboards
	if !cfg.Enabled {
		return nil, cfg, nil
	}
	lb := s.registry.Get(language, mode, submode, cfg)
	if lb == nil {
		return nil, cfg, fmt.Errorf("%w: %s", ErrNotEligible, daily.ModeKey(language, mode, submode))
	}
	return lb, cfg, nil
}

// SubmitResult records a result on today's leaderboard of its mode and
// returns the 1-based rank, or -1 when it was not ranked.
func (s *Service) SubmitResult(ctx context.Context, sub model.ResultSubmission) (int, error) { //nolint:gocritic // hugeParam: value semantics match the queue
	if err := validate.Struct(sub); err != nil {
		return daily.NotRanked, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	lb, cfg, err := s.handle(sub.Language, sub.Mode, sub.Submode)
	if err != nil {
		return daily.NotRanked, err
	}
	if lb == nil {
		metrics.RecordResultAdded(metrics.OutcomeSkipped)
		return daily.NotRanked, nil
	}

	rank, err := lb.AddResult(ctx, sub.Entry(), cfg)
	if err != nil {
		s.logger.Error(ctx, "add result failed",
			logger.String("uid", sub.UID),
			logger.String("mode", daily.ModeKey(sub.Language, sub.Mode, sub.Submode)),
			logger.Error(err))
		return daily.NotRanked, err
	}
	return rank, nil
}

// EnqueueResult validates sub and queues it for the ingest workers. A
// submission whose fingerprint was recently accepted is rejected with
// ErrDuplicate.
func (s *Service) EnqueueResult(ctx context.Context, sub model.ResultSubmission) error { //nolint:gocritic // hugeParam: value semantics match the queue
	if err := validate.Struct(sub); err != nil {
		metrics.RecordIngestEnqueued(metrics.IngestRejected)
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	if _, _, err := s.handle(sub.Language, sub.Mode, sub.Submode); err != nil {
		metrics.RecordIngestEnqueued(metrics.IngestRejected)
		return err
	}

	id := sub.Fingerprint()
	if s.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordIngestEnqueued(metrics.IngestDuplicate)
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	if err := s.queue.Enqueue(ctx, sub); err != nil {
		s.deduper.Unrecord(ctx, id)
		metrics.RecordIngestEnqueued(metrics.IngestRejected)
		if errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed) {
			return fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return err
	}
	metrics.RecordIngestEnqueued(metrics.IngestAccepted)
	return nil
}

// DailyResults returns ranks [minRank, maxRank] (0-based, inclusive) of
// today's leaderboard in display order.
func (s *Service) DailyResults(ctx context.Context, language, mode, submode string, minRank, maxRank int) ([]model.RankedEntry, error) {
	if minRank < 0 || maxRank < minRank {
		return nil, fmt.Errorf("%w: [%d, %d]", daily.ErrInvalidRange, minRank, maxRank)
	}
	// Both bounds are non-negative here, so the difference cannot overflow.
	if limit := s.cfg.Load().MaxRangeSize; maxRank-minRank >= limit {
		return nil, fmt.Errorf("%w: at most %d ranks per request", ErrRangeTooLarge, limit)
	}
	lb, cfg, err := s.handle(language, mode, submode)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return []model.RankedEntry{}, nil
	}
	return lb.GetResults(ctx, minRank, maxRank, cfg)
}

// DailyRank returns uid's entry on today's leaderboard, or nil.
func (s *Service) DailyRank(ctx context.Context, language, mode, submode, uid string) (*model.RankedEntry, error) {
	lb, cfg, err := s.handle(language, mode, submode)
	if err != nil || lb == nil {
		return nil, err
	}
	return lb.GetRank(ctx, uid, cfg)
}

// BoardStats describes one cached leaderboard.
type BoardStats struct {
	Language string `json:"language"`
	Mode     string `json:"mode"`
	Submode  string `json:"submode"`
	Count    int64  `json:"count"`
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Store          string       `json:"store"`
	StoreConnected bool         `json:"storeConnected"`
	Enabled        bool         `json:"enabled"`
	MaxResults     int64        `json:"maxResults"`
	RegistrySize   int          `json:"registrySize"`
	QueueLength    int          `json:"queueLength"`
	QueueCapacity  int          `json:"queueCapacity"`
	Workers        int          `json:"workers"`
	DedupeSize     int64        `json:"dedupeSize"`
	UptimeSeconds  int64        `json:"uptimeSeconds"`
	Boards         []BoardStats `json:"boards"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	cfg := s.cfg.Load()
	st := Stats{
		Store:          s.storeName,
		StoreConnected: s.store.Connected(ctx),
		Enabled:        cfg.DailyLeaderboards.Enabled,
		MaxResults:     cfg.DailyLeaderboards.MaxResults,
		RegistrySize:   s.registry.Len(),
		QueueLength:    s.queue.Len(),
		QueueCapacity:  s.queue.Capacity(),
		Workers:        s.pool.Size(),
		DedupeSize:     s.deduper.Size(),
		UptimeSeconds:  int64(time.Since(s.startedAt).Seconds()),
		Boards:         []BoardStats{},
	}

	for _, lb := range s.registry.Handles() {
		n, err := lb.GetCount(ctx, &cfg.DailyLeaderboards)
		if err != nil {
			s.logger.Warn(ctx, "board count failed",
				logger.String("mode", daily.ModeKey(lb.Language(), lb.Mode(), lb.Submode())),
				logger.Error(err))
			continue
		}
		st.Boards = append(st.Boards, BoardStats{
			Language: lb.Language(),
			Mode:     lb.Mode(),
			Submode:  lb.Submode(),
			Count:    n,
		})
	}
	return st
}
