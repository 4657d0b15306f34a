package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const (
	testScores  = "lb:scores:english:time:60:0"
	testResults = "lb:results:english:time:60:0"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func addReq(uid string, score float64, maxResults int64) AddRequest {
	return AddRequest{
		ScoresKey:    testScores,
		ResultsKey:   testResults,
		MaxResults:   maxResults,
		ExpireAtUnix: 1_000,
		UID:          uid,
		Score:        score,
		Payload:      []byte(fmt.Sprintf(`{"uid":%q,"wpm":%v}`, uid, score)),
	}
}

func TestMemoryStoreAddResult(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		clock := &fakeClock{now: time.Unix(0, 0)}
		store := NewMemoryStore(WithClock(clock.Now), WithSeed(42))
		defer store.Close()

		Convey("Inserting into an empty partition ranks first and sets the expiry", func() {
			rank, ok, err := store.AddResult(ctx, addReq("u1", 100, 3))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(rank, ShouldEqual, 0)

			deadline, has := store.ExpireAt(testScores)
			So(has, ShouldBeTrue)
			So(deadline, ShouldEqual, 1_000)
			deadline, has = store.ExpireAt(testResults)
			So(has, ShouldBeTrue)
			So(deadline, ShouldEqual, 1_000)
		})

		Convey("Full partition evicts the lowest score", func() {
			for _, m := range []struct {
				id    string
				score float64
			}{{"u1", 100}, {"u2", 90}, {"u3", 80}} {
				_, _, err := store.AddResult(ctx, addReq(m.id, m.score, 3))
				So(err, ShouldBeNil)
			}

			rank, ok, err := store.AddResult(ctx, addReq("u4", 95, 3))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(rank, ShouldEqual, 1)
			So(store.Scores(testScores), ShouldResemble, map[string]float64{"u1": 100, "u4": 95, "u2": 90})

			payloads, err := store.Range(ctx, testScores, testResults, 0, 10)
			So(err, ShouldBeNil)
			So(len(payloads), ShouldEqual, 3)

			Convey("A result below the board is not retained and leaves it unchanged", func() {
				rank, ok, err := store.AddResult(ctx, addReq("u5", 50, 3))
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(rank, ShouldEqual, 0)
				So(store.Scores(testScores), ShouldResemble, map[string]float64{"u1": 100, "u4": 95, "u2": 90})

				_, found, err := store.RankOf(ctx, testScores, testResults, "u5")
				So(err, ShouldBeNil)
				So(found, ShouldBeFalse)
			})
		})

		Convey("Resubmitting replaces the prior result even when lower", func() {
			_, _, _ = store.AddResult(ctx, addReq("u1", 100, 10))
			_, _, _ = store.AddResult(ctx, addReq("u2", 90, 10))

			rank, ok, err := store.AddResult(ctx, addReq("u1", 70, 10))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(rank, ShouldEqual, 1)

			lookup, found, err := store.RankOf(ctx, testScores, testResults, "u1")
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(lookup.Rank, ShouldEqual, 1)
			So(lookup.Count, ShouldEqual, 2)
			So(string(lookup.Payload), ShouldContainSubstring, `"wpm":70`)
		})

		Convey("A not retained submission does not refresh the expiry", func() {
			_, _, _ = store.AddResult(ctx, addReq("u1", 100, 1))
			req := addReq("u2", 10, 1)
			req.ExpireAtUnix = 5_000
			_, ok, err := store.AddResult(ctx, req)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			deadline, _ := store.ExpireAt(testScores)
			So(deadline, ShouldEqual, 1_000)
		})

		Convey("Invalid arguments are rejected", func() {
			_, _, err := store.AddResult(ctx, addReq("u1", 1, 0))
			So(errors.Is(err, ErrInvalidBound), ShouldBeTrue)

			_, _, err = store.AddResult(ctx, addReq("u1", math.NaN(), 5))
			So(errors.Is(err, ErrInvalidScore), ShouldBeTrue)

			_, err = store.Range(ctx, testScores, testResults, 3, 1)
			So(errors.Is(err, ErrInvalidRange), ShouldBeTrue)
			_, err = store.Range(ctx, testScores, testResults, -1, 1)
			So(errors.Is(err, ErrInvalidRange), ShouldBeTrue)
		})

		Convey("Closed store reports disconnected and refuses commands", func() {
			So(store.Connected(ctx), ShouldBeTrue)
			So(store.Close(), ShouldBeNil)
			So(store.Connected(ctx), ShouldBeFalse)

			_, _, err := store.AddResult(ctx, addReq("u1", 1, 5))
			So(errors.Is(err, ErrStoreClosed), ShouldBeTrue)
			_, err = store.Count(ctx, testScores)
			So(errors.Is(err, ErrStoreClosed), ShouldBeTrue)
		})
	})
}

func TestMemoryStoreRange(t *testing.T) {
	Convey("Given a populated partition", t, func() {
		ctx := context.Background()
		store := NewMemoryStore(WithSeed(7))
		defer store.Close()

		for i := 0; i < 5; i++ {
			_, _, err := store.AddResult(ctx, AddRequest{
				ScoresKey: testScores, ResultsKey: testResults,
				MaxResults: 10, ExpireAtUnix: math.MaxInt32,
				UID: fmt.Sprintf("u%d", i), Score: float64(i * 10),
				Payload: []byte(fmt.Sprintf("p%d", i)),
			})
			So(err, ShouldBeNil)
		}

		Convey("Range returns payloads in descending score order", func() {
			payloads, err := store.Range(ctx, testScores, testResults, 1, 3)
			So(err, ShouldBeNil)
			So(len(payloads), ShouldEqual, 3)
			So(string(payloads[0]), ShouldEqual, "p3")
			So(string(payloads[2]), ShouldEqual, "p1")
		})

		Convey("Range past the end is truncated", func() {
			payloads, err := store.Range(ctx, testScores, testResults, 4, 50)
			So(err, ShouldBeNil)
			So(len(payloads), ShouldEqual, 1)
			So(string(payloads[0]), ShouldEqual, "p0")

			payloads, err = store.Range(ctx, testScores, testResults, 10, 50)
			So(err, ShouldBeNil)
			So(payloads, ShouldBeEmpty)
		})

		Convey("Count reports the cardinality", func() {
			n, err := store.Count(ctx, testScores)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 5)

			n, err = store.Count(ctx, "missing")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})
	})
}

func TestMemoryStoreExpiry(t *testing.T) {
	Convey("Given keys with an absolute expiry", t, func() {
		ctx := context.Background()
		clock := &fakeClock{now: time.Unix(900, 0)}
		store := NewMemoryStore(WithClock(clock.Now), WithSeed(1))
		defer store.Close()

		_, _, err := store.AddResult(ctx, addReq("u1", 100, 5))
		So(err, ShouldBeNil)

		Convey("They are visible before the deadline", func() {
			n, _ := store.Count(ctx, testScores)
			So(n, ShouldEqual, 1)
		})

		Convey("They vanish at the deadline and the sweeper reclaims them", func() {
			clock.Advance(100 * time.Second)

			n, _ := store.Count(ctx, testScores)
			So(n, ShouldEqual, 0)
			_, found, _ := store.RankOf(ctx, testScores, testResults, "u1")
			So(found, ShouldBeFalse)

			So(store.Sweep(), ShouldEqual, 2)
			_, has := store.ExpireAt(testScores)
			So(has, ShouldBeFalse)
		})

		Convey("Writing after the deadline starts a fresh partition", func() {
			clock.Advance(200 * time.Second)
			req := addReq("u2", 10, 5)
			req.ExpireAtUnix = 2_000
			rank, ok, err := store.AddResult(ctx, req)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(rank, ShouldEqual, 0)
			So(store.Scores(testScores), ShouldResemble, map[string]float64{"u2": 10})
		})
	})
}

func TestMemoryStoreConcurrentBound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithSeed(99))
	defer store.Close()

	const (
		writers = 16
		perW    = 200
		bound   = 25
	)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perW; i++ {
				req := addReq(fmt.Sprintf("w%d-%d", w, i%40), float64((w*perW+i)%997), bound)
				req.ExpireAtUnix = math.MaxInt32
				if _, _, err := store.AddResult(ctx, req); err != nil {
					t.Errorf("add: %v", err)
					return
				}
				if n, _ := store.Count(ctx, testScores); n > bound {
					t.Errorf("partition grew to %d", n)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	n, err := store.Count(ctx, testScores)
	if err != nil {
		t.Fatal(err)
	}
	if n != bound {
		t.Fatalf("count = %d, want %d", n, bound)
	}
	payloads, err := store.Range(ctx, testScores, testResults, 0, bound)
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads) != bound {
		t.Fatalf("hash and sorted set diverged: %d payloads", len(payloads))
	}
}

func TestMemoryStoreServe(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	store := NewMemoryStore(WithClock(clock.Now), WithSweepInterval(5*time.Millisecond))
	defer store.Close()

	_, _, _ = store.AddResult(context.Background(), addReq("u1", 1, 5))
	clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := store.ExpireAt(testScores); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sweeper did not reclaim expired key")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve returned %v", err)
	}
}
