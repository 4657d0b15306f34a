package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dailyboard/internal/domain/dedupe"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()
			So(d, ShouldNotBeNil)
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When recording IDs", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)

			Convey("Then unrecording allows the ID again", func() {
				d.Unrecord(ctx, "a")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})

			Convey("Then the oldest ID falls out at capacity", func() {
				d.SeenAndRecord(ctx, "b")
				d.SeenAndRecord(ctx, "c")
				d.SeenAndRecord(ctx, "d")
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
			})
		})

		Convey("When unrecording an unknown ID", func() {
			d := dedupe.NewInMemoryDeduper()
			d.Unrecord(ctx, "nope")
			So(d.Size(), ShouldEqual, 0)
		})
	})
}

func TestInMemoryDeduperConcurrent(t *testing.T) {
	d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10_000))
	var (
		wg    sync.WaitGroup
		fresh atomic.Int64
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if !d.SeenAndRecord(context.Background(), fmt.Sprintf("id-%d", i)) {
					fresh.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	if fresh.Load() != 1000 {
		t.Fatalf("recorded %d fresh ids, want 1000", fresh.Load())
	}
}
