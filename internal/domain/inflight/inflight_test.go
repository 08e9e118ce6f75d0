package inflight_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fieldray/kanvass/internal/domain/inflight"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryTracker(t *testing.T) {
	Convey("Given a new in-flight tracker", t, func() {
		ctx := context.Background()

		Convey("When creating with default options", func() {
			tr := inflight.NewInMemoryTracker()
			So(tr, ShouldNotBeNil)
			So(tr.Size(), ShouldEqual, 0)
		})

		Convey("When creating with a capacity hint", func() {
			tr := inflight.NewInMemoryTracker(inflight.WithCapacityHint(4))
			So(tr, ShouldNotBeNil)
			So(tr.Size(), ShouldEqual, 0)
		})

		Convey("When claiming a visit", func() {
			tr := inflight.NewInMemoryTracker()

			Convey("And the visit is free", func() {
				pending := tr.Begin(ctx, 101)

				Convey("Then the claim succeeds and is counted", func() {
					So(pending, ShouldBeFalse)
					So(tr.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the visit is already claimed", func() {
				tr.Begin(ctx, 101)
				pending := tr.Begin(ctx, 101)

				Convey("Then the second claim reports it as pending", func() {
					So(pending, ShouldBeTrue)
					So(tr.Size(), ShouldEqual, 1)
				})
			})

			Convey("And a different visit is claimed", func() {
				So(tr.Begin(ctx, 101), ShouldBeFalse)
				So(tr.Begin(ctx, 102), ShouldBeFalse)
				So(tr.Size(), ShouldEqual, 2)
			})
		})

		Convey("When finishing a claim", func() {
			tr := inflight.NewInMemoryTracker()
			tr.Begin(ctx, 101)
			tr.Finish(ctx, 101)

			Convey("Then the visit can be claimed again", func() {
				So(tr.Size(), ShouldEqual, 0)
				So(tr.Begin(ctx, 101), ShouldBeFalse)
			})
		})

		Convey("When finishing an unclaimed visit", func() {
			tr := inflight.NewInMemoryTracker()
			tr.Finish(ctx, 999)

			Convey("Then nothing changes", func() {
				So(tr.Size(), ShouldEqual, 0)
			})
		})

		Convey("When many goroutines contend for one visit", func() {
			tr := inflight.NewInMemoryTracker()

			const goroutines = 64
			var wins int64
			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !tr.Begin(ctx, 7) {
						atomic.AddInt64(&wins, 1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one claim wins", func() {
				So(wins, ShouldEqual, 1)
				So(tr.Size(), ShouldEqual, 1)
			})
		})
	})
}
