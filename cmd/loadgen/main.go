package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/dailyboard/internal/loadgen"
	"github.com/okian/dailyboard/pkg/logger"
)

// Default flag values.
const (
	defaultResults  = 10000
	defaultUsers    = 2000
	defaultPageSize = 100
	defaultTimeout  = 30 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &loadgen.Config{}
	var (
		verbose bool
		limit   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "submit synthetic results and verify the daily leaderboard",
		Long: `loadgen submits random typing results to a dailyboard server, then reads
today's leaderboard of the chosen mode and checks that it is bounded,
ordered and holds the best results.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			if verbose {
				_ = logger.SetLevelString("debug")
			}
			if cfg.Seed == 0 {
				cfg.Seed = uint64(time.Now().UnixNano())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, limit)
			defer cancel()

			stats, err := loadgen.Run(ctx, cfg)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(),
					"generated=%d ranked=%d not_ranked=%d accepted=%d duplicates=%d failed=%d board=%d/%d duration=%s\n",
					stats.Generated, stats.Ranked, stats.NotRanked, stats.Accepted, stats.Duplicates,
					stats.Failed, stats.BoardSize, stats.MaxResults, stats.Duration.Round(time.Millisecond))
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the server")
	f.IntVar(&cfg.Results, "results", defaultResults, "number of results to submit")
	f.IntVar(&cfg.Users, "users", defaultUsers, "number of distinct users")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "concurrent submitters")
	f.IntVar(&cfg.PageSize, "page", defaultPageSize, "ranks per leaderboard read")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "per-request timeout")
	f.BoolVar(&cfg.Async, "async", false, "submit through the ingest queue")
	f.Uint64Var(&cfg.Seed, "seed", 0, "generator seed (0 picks one)")
	f.StringVar(&cfg.Language, "language", "english", "result language")
	f.StringVar(&cfg.Mode, "mode", "time", "result mode")
	f.StringVar(&cfg.Submode, "submode", "15", "result submode")
	f.DurationVar(&limit, "limit", defaultRunLimit, "overall run deadline")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}
