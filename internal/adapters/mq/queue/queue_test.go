package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldray/kanvass/internal/adapters/mq/queue"
	"github.com/fieldray/kanvass/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func job(visitID int64) queue.Job {
	return queue.Job{
		VisitID: visitID,
		From:    model.StatusPending,
		To:      model.StatusInProgress,
		Done:    make(chan error, 1),
	}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a new in-memory queue", t, func() {
		ctx := context.Background()

		Convey("When creating with default options", func() {
			q := queue.NewInMemoryQueue()
			So(q, ShouldNotBeNil)
			So(q.Len(ctx), ShouldEqual, 0)
			So(q.IsClosed(), ShouldBeFalse)
		})

		Convey("When enqueuing and dequeuing a job", func() {
			q := queue.NewInMemoryQueue()
			defer func() { _ = q.Close() }()

			ok := q.Enqueue(ctx, job(1))
			So(ok, ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 1)

			select {
			case got := <-q.Dequeue(ctx):
				So(got.VisitID, ShouldEqual, 1)
				So(got.From, ShouldEqual, model.StatusPending)
				So(got.To, ShouldEqual, model.StatusInProgress)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for job")
			}
		})

		Convey("When the queue reaches capacity", func() {
			q := queue.NewInMemoryQueue(
				queue.WithCapacity(2),
				queue.WithBufferSize(2),
			)
			defer func() { _ = q.Close() }()

			So(q.Enqueue(ctx, job(1)), ShouldBeTrue)
			So(q.Enqueue(ctx, job(2)), ShouldBeTrue)

			Convey("Then further enqueues report backpressure", func() {
				So(q.Enqueue(ctx, job(3)), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the queue is closed", func() {
			q := queue.NewInMemoryQueue()
			So(q.Close(), ShouldBeNil)

			Convey("Then it reports closed and refuses jobs", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, job(1)), ShouldBeFalse)
			})

			Convey("Then closing again is harmless", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When the queue closes with jobs still buffered", func() {
			q := queue.NewInMemoryQueue()
			So(q.Enqueue(ctx, job(1)), ShouldBeTrue)
			So(q.Enqueue(ctx, job(2)), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then buffered jobs drain before the channel closes", func() {
				ch := q.Dequeue(ctx)
				var got []int64
				for j := range ch {
					got = append(got, j.VisitID)
				}
				So(got, ShouldResemble, []int64{1, 2})
			})
		})

		Convey("When several jobs flow through", func() {
			q := queue.NewInMemoryQueue()

			const n = 50
			for i := 1; i <= n; i++ {
				So(q.Enqueue(ctx, job(int64(i))), ShouldBeTrue)
			}
			So(q.Close(), ShouldBeNil)

			seen := make(map[int64]bool, n)
			for j := range q.Dequeue(ctx) {
				seen[j.VisitID] = true
			}

			Convey("Then every job is delivered exactly once", func() {
				So(seen, ShouldHaveLength, n)
			})
		})
	})
}
