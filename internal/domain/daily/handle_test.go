package daily_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dailyboard/internal/adapters/repository"
	"github.com/okian/dailyboard/internal/config"
	"github.com/okian/dailyboard/internal/domain/daily"
	"github.com/okian/dailyboard/internal/domain/model"
)

var day0 = time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

func boardConfig(maxResults int64) *config.DailyLeaderboards {
	return &config.DailyLeaderboards{
		Enabled:                         true,
		MaxResults:                      maxResults,
		LeaderboardExpirationTimeInDays: 2,
		DailyLeaderboardCacheSize:       4,
	}
}

func entry(uid string, wpm, acc float64, ts int64) model.LeaderboardEntry {
	return model.LeaderboardEntry{UID: uid, Name: "name-" + uid, WPM: wpm, Raw: wpm + 2, Acc: acc, Consistency: 80, Timestamp: ts}
}

type offlineStore struct{ repository.RankedStore }

func (offlineStore) Connected(context.Context) bool { return false }

var errBoom = errors.New("boom")

type brokenStore struct{ repository.RankedStore }

func (brokenStore) Connected(context.Context) bool { return true }
func (brokenStore) AddResult(context.Context, repository.AddRequest) (int64, bool, error) {
	return 0, false, errBoom
}
func (brokenStore) Range(context.Context, string, string, int64, int64) ([][]byte, error) {
	return nil, errBoom
}
func (brokenStore) RankOf(context.Context, string, string, string) (repository.RankLookup, bool, error) {
	return repository.RankLookup{}, false, errBoom
}
func (brokenStore) Count(context.Context, string) (int64, error) { return 0, errBoom }

func TestDailyLeaderboardRanking(t *testing.T) {
	Convey("Given a handle on an empty partition", t, func() {
		ctx := context.Background()
		clock := func() time.Time { return day0.Add(10 * time.Hour) }
		store := repository.NewMemoryStore(repository.WithClock(clock), repository.WithSeed(1))
		defer store.Close()
		lb := daily.New("english", "time", "60", store, daily.WithClock(clock))

		Convey("The lowest score is evicted when the board is full", func() {
			cfg := boardConfig(2)
			r1, err := lb.AddResult(ctx, entry("u1", 100, 90, 1), cfg)
			So(err, ShouldBeNil)
			So(r1, ShouldEqual, 1)
			r2, _ := lb.AddResult(ctx, entry("u2", 90, 90, 2), cfg)
			So(r2, ShouldEqual, 2)
			r3, _ := lb.AddResult(ctx, entry("u3", 95, 90, 3), cfg)
			So(r3, ShouldEqual, 2)

			results, err := lb.GetResults(ctx, 0, 9, cfg)
			So(err, ShouldBeNil)
			So(len(results), ShouldEqual, 2)
			So(results[0].UID, ShouldEqual, "u1")
			So(results[0].Rank, ShouldEqual, 1)
			So(results[1].UID, ShouldEqual, "u3")
			So(results[1].Rank, ShouldEqual, 2)

			rank, err := lb.GetRank(ctx, "u2", cfg)
			So(err, ShouldBeNil)
			So(rank, ShouldBeNil)

			Convey("A result below the board is not ranked", func() {
				r, err := lb.AddResult(ctx, entry("u4", 10, 90, 4), cfg)
				So(err, ShouldBeNil)
				So(r, ShouldEqual, daily.NotRanked)
			})
		})

		Convey("A resubmission replaces the earlier result", func() {
			cfg := boardConfig(10)
			_, _ = lb.AddResult(ctx, entry("u1", 100, 90, 1), cfg)
			_, _ = lb.AddResult(ctx, entry("u1", 80, 85, 2), cfg)

			rank, err := lb.GetRank(ctx, "u1", cfg)
			So(err, ShouldBeNil)
			So(rank, ShouldNotBeNil)
			So(rank.Rank, ShouldEqual, 1)
			So(rank.Count, ShouldEqual, 1)
			So(rank.WPM, ShouldEqual, 80)
			So(rank.Name, ShouldEqual, "name-u1")

			n, err := lb.GetCount(ctx, cfg)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})

		Convey("Equal wpm is ordered by acc desc then timestamp asc", func() {
			cfg := boardConfig(10)
			_, _ = lb.AddResult(ctx, entry("late", 100, 95, 5), cfg)
			_, _ = lb.AddResult(ctx, entry("early", 100, 95, 3), cfg)
			_, _ = lb.AddResult(ctx, entry("sharp", 100, 99, 9), cfg)
			_, _ = lb.AddResult(ctx, entry("fast", 120, 50, 9), cfg)

			results, err := lb.GetResults(ctx, 0, 3, cfg)
			So(err, ShouldBeNil)
			uids := make([]string, len(results))
			for i, r := range results {
				uids[i] = r.UID
				So(r.Rank, ShouldEqual, i+1)
			}
			So(uids, ShouldResemble, []string{"fast", "sharp", "early", "late"})
		})

		Convey("Display ranks start after minRank", func() {
			cfg := boardConfig(10)
			for i := 0; i < 5; i++ {
				_, _ = lb.AddResult(ctx, entry(fmt.Sprintf("u%d", i), float64(100-i), 90, int64(i)), cfg)
			}
			results, err := lb.GetResults(ctx, 2, 3, cfg)
			So(err, ShouldBeNil)
			So(len(results), ShouldEqual, 2)
			So(results[0].UID, ShouldEqual, "u2")
			So(results[0].Rank, ShouldEqual, 3)
			So(results[1].Rank, ShouldEqual, 4)

			_, err = lb.GetResults(ctx, 3, 2, cfg)
			So(errors.Is(err, daily.ErrInvalidRange), ShouldBeTrue)
		})

		Convey("The partition expiry is the day start plus the configured days", func() {
			cfg := boardConfig(10)
			_, _ = lb.AddResult(ctx, entry("u1", 100, 90, 1), cfg)
			deadline, ok := store.ExpireAt(lb.ComputeKeys().ScoresKey)
			So(ok, ShouldBeTrue)
			So(deadline, ShouldEqual, day0.Add(48*time.Hour).Unix())
		})
	})
}

func TestDailyLeaderboardRollover(t *testing.T) {
	Convey("Given handles pinned to consecutive days", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(repository.WithClock(func() time.Time { return day0 }))
		defer store.Close()
		cfg := boardConfig(10)

		today := daily.New("english", "time", "60", store, daily.WithCustomTime(day0.Add(23*time.Hour).UnixMilli()))
		tomorrow := daily.New("english", "time", "60", store, daily.WithCustomTime(day0.Add(25*time.Hour).UnixMilli()))

		_, err := today.AddResult(ctx, entry("u1", 100, 90, 1), cfg)
		So(err, ShouldBeNil)
		before, _ := store.ExpireAt(today.ComputeKeys().ScoresKey)

		_, err = tomorrow.AddResult(ctx, entry("u2", 50, 90, 2), cfg)
		So(err, ShouldBeNil)

		Convey("The partitions are disjoint", func() {
			So(today.ComputeKeys().ScoresKey, ShouldNotEqual, tomorrow.ComputeKeys().ScoresKey)

			r, _ := today.GetRank(ctx, "u2", cfg)
			So(r, ShouldBeNil)
			r, _ = tomorrow.GetRank(ctx, "u1", cfg)
			So(r, ShouldBeNil)
			r, _ = tomorrow.GetRank(ctx, "u2", cfg)
			So(r.Rank, ShouldEqual, 1)
		})

		Convey("Writing to the new day does not refresh the old expiry", func() {
			after, _ := store.ExpireAt(today.ComputeKeys().ScoresKey)
			So(after, ShouldEqual, before)
			next, _ := store.ExpireAt(tomorrow.ComputeKeys().ScoresKey)
			So(next, ShouldEqual, before+86_400)
		})
	})
}

func TestDailyLeaderboardFailOpen(t *testing.T) {
	Convey("Given a handle whose feature or store is unavailable", t, func() {
		ctx := context.Background()
		mem := repository.NewMemoryStore()
		defer mem.Close()

		Convey("Disabled leaderboards return the empty values", func() {
			lb := daily.New("english", "time", "60", mem)
			cfg := boardConfig(10)
			cfg.Enabled = false

			r, err := lb.AddResult(ctx, entry("u1", 100, 90, 1), cfg)
			So(err, ShouldBeNil)
			So(r, ShouldEqual, daily.NotRanked)
			n, _ := mem.Count(ctx, lb.ComputeKeys().ScoresKey)
			So(n, ShouldEqual, 0)

			results, err := lb.GetResults(ctx, 0, 10, cfg)
			So(err, ShouldBeNil)
			So(results, ShouldNotBeNil)
			So(results, ShouldBeEmpty)

			rank, err := lb.GetRank(ctx, "u1", cfg)
			So(err, ShouldBeNil)
			So(rank, ShouldBeNil)

			r, err = lb.AddResult(ctx, entry("u1", 100, 90, 1), nil)
			So(err, ShouldBeNil)
			So(r, ShouldEqual, daily.NotRanked)
		})

		Convey("An unreachable store returns the empty values", func() {
			lb := daily.New("english", "time", "60", offlineStore{mem})
			cfg := boardConfig(10)

			r, err := lb.AddResult(ctx, entry("u1", 100, 90, 1), cfg)
			So(err, ShouldBeNil)
			So(r, ShouldEqual, daily.NotRanked)

			results, err := lb.GetResults(ctx, 0, 10, cfg)
			So(err, ShouldBeNil)
			So(results, ShouldBeEmpty)

			rank, err := lb.GetRank(ctx, "u1", cfg)
			So(err, ShouldBeNil)
			So(rank, ShouldBeNil)

			n, err := lb.GetCount(ctx, cfg)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("Store operation errors propagate", func() {
			lb := daily.New("english", "time", "60", brokenStore{})
			cfg := boardConfig(10)

			r, err := lb.AddResult(ctx, entry("u1", 100, 90, 1), cfg)
			So(r, ShouldEqual, daily.NotRanked)
			So(errors.Is(err, daily.ErrStore), ShouldBeTrue)
			So(errors.Is(err, errBoom), ShouldBeTrue)

			_, err = lb.GetResults(ctx, 0, 1, cfg)
			So(errors.Is(err, errBoom), ShouldBeTrue)
			_, err = lb.GetRank(ctx, "u1", cfg)
			So(errors.Is(err, errBoom), ShouldBeTrue)
			_, err = lb.GetCount(ctx, cfg)
			So(errors.Is(err, errBoom), ShouldBeTrue)
		})
	})
}

func TestDailyLeaderboardConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(repository.WithSeed(3),
		repository.WithClock(func() time.Time { return day0.Add(time.Hour) }))
	defer store.Close()
	lb := daily.New("english", "time", "60", store, daily.WithCustomTime(day0.UnixMilli()))
	cfg := boardConfig(20)

	const (
		writers = 8
		uids    = 30
	)
	// Every uid gets a distinct base score and only ever improves, so the
	// final board must hold exactly the top 20 final scores.
	finals := make([]map[string]float64, writers)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		finals[w] = make(map[string]float64)
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				u := w*uids + i%uids
				uid := fmt.Sprintf("w%d-%d", w, i%uids)
				wpm := float64((u*7919)%2400) + float64(i/uids)*0.01
				if _, err := lb.AddResult(ctx, entry(uid, wpm, 90, int64(i)), cfg); err != nil {
					t.Errorf("add: %v", err)
					return
				}
				finals[w][uid] = wpm
			}
		}(w)
	}
	wg.Wait()

	var all []float64
	last := make(map[string]float64)
	for _, m := range finals {
		for uid, wpm := range m {
			last[uid] = wpm
			all = append(all, wpm)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(all)))
	cutoff := all[19]

	results, err := lb.GetResults(ctx, 0, 100, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 20 {
		t.Fatalf("board size %d, want 20", len(results))
	}
	for i, r := range results {
		if i > 0 && model.Compare(results[i-1].LeaderboardEntry, r.LeaderboardEntry) > 0 {
			t.Fatalf("results out of order at %d", i)
		}
		if last[r.UID] != r.WPM {
			t.Fatalf("%s holds %v, last submission was %v", r.UID, r.WPM, last[r.UID])
		}
		if r.WPM < cutoff {
			t.Fatalf("%s with %v is below the top-20 cutoff %v", r.UID, r.WPM, cutoff)
		}
	}
}
