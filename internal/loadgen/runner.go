package loadgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/dailyboard/internal/domain/model"
	"github.com/okian/dailyboard/pkg/logger"
)

const drainPoll = 100 * time.Millisecond

// Run executes one load test: health check, generation, concurrent
// submission, queue drain (async only), board read and verification.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("loadgen")
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	start := time.Now()

	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	server, err := client.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	subs := Generate(cfg, time.Now())
	stats := &Stats{Generated: len(subs), MaxResults: server.MaxResults}
	log.Info(ctx, "submitting results",
		logger.Int("results", len(subs)),
		logger.Int("users", cfg.Users),
		logger.Int("workers", cfg.Workers),
		logger.Bool("async", cfg.Async))

	delivered := submit(ctx, client, cfg, subs, stats)

	if cfg.Async {
		if err := waitDrained(ctx, client); err != nil {
			return stats, err
		}
	}

	board, err := client.Board(ctx, cfg.Language, cfg.Mode, cfg.Submode, cfg.PageSize)
	if err != nil {
		return stats, err
	}
	stats.BoardSize = len(board)
	stats.Duration = time.Since(start)

	log.Info(ctx, "run finished",
		logger.Int("ranked", stats.Ranked),
		logger.Int("not_ranked", stats.NotRanked),
		logger.Int("accepted", stats.Accepted),
		logger.Int("failed", stats.Failed),
		logger.Int("board_size", stats.BoardSize),
		logger.Duration("duration", stats.Duration))

	return stats, Verify(delivered, board, server.MaxResults, cfg.PageSize)
}

// submit posts subs with cfg.Workers goroutines and returns the ones the
// server took.
func submit(ctx context.Context, client *Client, cfg *Config, subs []model.ResultSubmission, stats *Stats) []model.ResultSubmission {
	jobs := make(chan int)
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		delivered = make([]model.ResultSubmission, 0, len(subs))
	)

	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcome, err := client.Submit(ctx, subs[i], cfg.Async)
				if err != nil {
					logger.Get().Debug(ctx, "submit failed", logger.Error(err))
				}

				mu.Lock()
				switch outcome {
				case outcomeRanked:
					stats.Ranked++
				case outcomeNotRanked:
					stats.NotRanked++
				case outcomeAccepted:
					stats.Accepted++
				case outcomeDuplicate:
					stats.Duplicates++
				default:
					stats.Failed++
				}
				if outcome != outcomeFailed && outcome != outcomeDuplicate {
					delivered = append(delivered, subs[i])
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for i := range subs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return delivered
}

// waitDrained polls /stats until the ingest queue reads empty twice in a
// row, so the last dequeued result has been applied.
func waitDrained(ctx context.Context, client *Client) error {
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	empty := 0
	for {
		s, err := client.Stats(ctx)
		if err != nil {
			return err
		}
		if s.QueueLength == 0 {
			empty++
		} else {
			empty = 0
		}
		if empty == 2 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
