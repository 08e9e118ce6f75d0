package transition_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/fieldray/kanvass/internal/adapters/repository"
	"github.com/fieldray/kanvass/internal/domain/inflight"
	"github.com/fieldray/kanvass/internal/domain/model"
	"github.com/fieldray/kanvass/internal/domain/transition"
	"github.com/fieldray/kanvass/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

// fakeStore is a minimal CAS store for manager tests.
type fakeStore struct {
	mu      sync.Mutex
	records map[int64]model.VisitRecord
}

func newFakeStore(records ...model.VisitRecord) *fakeStore {
	s := &fakeStore{records: make(map[int64]model.VisitRecord)}
	for _, v := range records {
		s.records[v.ID] = v
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, id int64) (model.VisitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[id]
	if !ok {
		return model.VisitRecord{}, repository.ErrNotFound
	}
	return v, nil
}

func (s *fakeStore) CompareAndSetStatus(_ context.Context, id int64, expected, next model.Status) (model.VisitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[id]
	if !ok {
		return model.VisitRecord{}, repository.ErrNotFound
	}
	if v.Status != expected {
		return model.VisitRecord{}, repository.ErrStatusConflict
	}
	v.Status = next
	s.records[id] = v
	return v, nil
}

// fakeDispatcher resolves jobs inline: it optionally reverts the store
// the way a worker would, releases the claim, and settles Done.
type fakeDispatcher struct {
	full      bool
	settleErr error
	store     *fakeStore
	tracker   inflight.Tracker
	enqueued  int
}

func (d *fakeDispatcher) Enqueue(ctx context.Context, job transition.Job) bool {
	if d.full {
		return false
	}
	d.enqueued++
	go func() {
		if d.settleErr != nil {
			_, _ = d.store.CompareAndSetStatus(ctx, job.VisitID, job.To, job.From)
			d.tracker.Finish(ctx, job.VisitID)
			job.Done <- d.settleErr
			return
		}
		d.tracker.Finish(ctx, job.VisitID)
		job.Done <- nil
	}()
	return true
}

func TestValidate(t *testing.T) {
	Convey("Given the status state machine", t, func() {
		Convey("When the transition is defined", func() {
			legal := []struct{ from, to model.Status }{
				{model.StatusPending, model.StatusInProgress},
				{model.StatusPending, model.StatusCancelled},
				{model.StatusInProgress, model.StatusCompleted},
			}
			for _, tc := range legal {
				So(transition.Validate(tc.from, tc.to), ShouldBeNil)
			}
		})

		Convey("When the transition is not defined", func() {
			illegal := []struct{ from, to model.Status }{
				{model.StatusPending, model.StatusCompleted},
				{model.StatusInProgress, model.StatusPending},
				{model.StatusInProgress, model.StatusCancelled},
				{model.StatusCompleted, model.StatusPending},
				{model.StatusCompleted, model.StatusInProgress},
				{model.StatusCancelled, model.StatusPending},
				{model.StatusPending, model.StatusPending},
			}
			for _, tc := range illegal {
				err := transition.Validate(tc.from, tc.to)
				So(err, ShouldNotBeNil)
				So(errors.Is(err, transition.ErrIllegalTransition), ShouldBeTrue)
			}
		})

		Convey("When inspecting the error detail", func() {
			err := transition.Validate(model.StatusCompleted, model.StatusInProgress)
			var illegal *transition.IllegalTransitionError
			So(errors.As(err, &illegal), ShouldBeTrue)
			So(illegal.From, ShouldEqual, model.StatusCompleted)
			So(illegal.To, ShouldEqual, model.StatusInProgress)
		})
	})
}

func TestManagerRequest(t *testing.T) {
	Convey("Given a transition manager", t, func() {
		ctx := context.Background()

		newManager := func(store *fakeStore, d *fakeDispatcher) (*transition.Manager, inflight.Tracker) {
			tracker := inflight.NewInMemoryTracker()
			d.store = store
			d.tracker = tracker
			return transition.NewManager(store, tracker, d), tracker
		}

		Convey("When the transition is legal and the remote commits", func() {
			store := newFakeStore(model.VisitRecord{ID: 1, Status: model.StatusPending})
			m, tracker := newManager(store, &fakeDispatcher{})

			got, err := m.Request(ctx, 1, model.StatusInProgress)

			Convey("Then the returned record carries the new status", func() {
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusInProgress)
			})

			Convey("Then the store keeps the new status", func() {
				v, _ := store.Get(ctx, 1)
				So(v.Status, ShouldEqual, model.StatusInProgress)
			})

			Convey("Then the in-flight claim is released", func() {
				So(tracker.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the visit does not exist", func() {
			store := newFakeStore()
			m, _ := newManager(store, &fakeDispatcher{})

			_, err := m.Request(ctx, 42, model.StatusInProgress)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the transition is illegal", func() {
			store := newFakeStore(model.VisitRecord{ID: 1, Status: model.StatusPending})
			d := &fakeDispatcher{}
			m, tracker := newManager(store, d)

			_, err := m.Request(ctx, 1, model.StatusCompleted)

			Convey("Then it is rejected before any effect", func() {
				So(errors.Is(err, transition.ErrIllegalTransition), ShouldBeTrue)
				So(d.enqueued, ShouldEqual, 0)
				So(tracker.Size(), ShouldEqual, 0)

				v, _ := store.Get(ctx, 1)
				So(v.Status, ShouldEqual, model.StatusPending)
			})
		})

		Convey("When a transition for the visit is already in flight", func() {
			store := newFakeStore(model.VisitRecord{ID: 1, Status: model.StatusPending})
			m, tracker := newManager(store, &fakeDispatcher{})
			tracker.Begin(ctx, 1)

			_, err := m.Request(ctx, 1, model.StatusInProgress)

			Convey("Then the request is rejected, not queued", func() {
				So(errors.Is(err, transition.ErrInFlight), ShouldBeTrue)

				var inFlight *transition.InFlightError
				So(errors.As(err, &inFlight), ShouldBeTrue)
				So(inFlight.VisitID, ShouldEqual, 1)
			})
		})

		Convey("When the dispatch queue is full", func() {
			store := newFakeStore(model.VisitRecord{ID: 1, Status: model.StatusPending})
			m, tracker := newManager(store, &fakeDispatcher{full: true})

			_, err := m.Request(ctx, 1, model.StatusInProgress)

			Convey("Then the optimistic update is rolled back", func() {
				So(errors.Is(err, transition.ErrBackpressure), ShouldBeTrue)

				v, _ := store.Get(ctx, 1)
				So(v.Status, ShouldEqual, model.StatusPending)
				So(tracker.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the remote mutation fails", func() {
			store := newFakeStore(model.VisitRecord{ID: 1, Status: model.StatusInProgress})
			settleErr := &transition.RemoteMutationError{VisitID: 1, To: model.StatusCompleted, Err: errors.New("boom")}
			m, tracker := newManager(store, &fakeDispatcher{settleErr: settleErr})

			_, err := m.Request(ctx, 1, model.StatusCompleted)

			Convey("Then the failure surfaces and the local copy is reverted", func() {
				So(errors.Is(err, transition.ErrRemoteMutation), ShouldBeTrue)

				v, _ := store.Get(ctx, 1)
				So(v.Status, ShouldEqual, model.StatusInProgress)
				So(tracker.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the caller's context is cancelled while waiting", func() {
			store := newFakeStore(model.VisitRecord{ID: 1, Status: model.StatusPending})
			tracker := inflight.NewInMemoryTracker()
			// Dispatcher that accepts the job but never settles it.
			m := transition.NewManager(store, tracker, acceptOnly{})

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := m.Request(cancelled, 1, model.StatusInProgress)
			So(err, ShouldNotBeNil)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

// acceptOnly enqueues successfully but never resolves the job.
type acceptOnly struct{}

func (acceptOnly) Enqueue(context.Context, transition.Job) bool { return true }
