package mapprep_test

import (
	"testing"
	"time"

	"github.com/fieldray/kanvass/internal/domain/mapprep"
	"github.com/fieldray/kanvass/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr[T any](v T) *T { return &v }

func TestPrepareMarkers(t *testing.T) {
	Convey("Given visit records", t, func() {
		checkIn := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
		checkOut := checkIn.Add(time.Hour + 23*time.Minute)

		Convey("When a completed visit carries both coordinates", func() {
			records := []model.VisitRecord{{
				ID:           1,
				ClientName:   "Farmacia Central",
				Status:       model.StatusCompleted,
				Latitude:     ptr(-33.44),
				Longitude:    ptr(-70.65),
				CheckInTime:  &checkIn,
				CheckoutTime: &checkOut,
			}}
			markers := mapprep.PrepareMarkers(records)

			Convey("Then it becomes a marker with label and elapsed time", func() {
				So(markers, ShouldHaveLength, 1)
				So(markers[0].ID, ShouldEqual, 1)
				So(markers[0].Lat, ShouldEqual, -33.44)
				So(markers[0].Lng, ShouldEqual, -70.65)
				So(markers[0].Label, ShouldEqual, "Farmacia Central")
				So(markers[0].ElapsedOnSite, ShouldEqual, "1h 23m")
			})
		})

		Convey("When a completed visit is missing a coordinate", func() {
			records := []model.VisitRecord{
				{ID: 2, Status: model.StatusCompleted, Latitude: ptr(-33.44)},
				{ID: 3, Status: model.StatusCompleted, Longitude: ptr(-70.65)},
				{ID: 4, Status: model.StatusCompleted},
			}

			Convey("Then it is silently excluded", func() {
				So(mapprep.PrepareMarkers(records), ShouldBeEmpty)
			})
		})

		Convey("When a non-completed visit carries valid coordinates", func() {
			records := []model.VisitRecord{
				{ID: 5, Status: model.StatusPending, Latitude: ptr(-33.44), Longitude: ptr(-70.65)},
				{ID: 6, Status: model.StatusInProgress, Latitude: ptr(-33.44), Longitude: ptr(-70.65)},
				{ID: 7, Status: model.StatusCancelled, Latitude: ptr(-33.44), Longitude: ptr(-70.65)},
			}

			Convey("Then none become markers", func() {
				So(mapprep.PrepareMarkers(records), ShouldBeEmpty)
			})
		})

		Convey("When the on-site interval is invalid", func() {
			inverted := checkIn.Add(-time.Hour)
			records := []model.VisitRecord{{
				ID:           8,
				Status:       model.StatusCompleted,
				Latitude:     ptr(-33.44),
				Longitude:    ptr(-70.65),
				CheckInTime:  &checkIn,
				CheckoutTime: &inverted,
			}}
			markers := mapprep.PrepareMarkers(records)

			Convey("Then the marker survives with an empty elapsed label", func() {
				So(markers, ShouldHaveLength, 1)
				So(markers[0].ElapsedOnSite, ShouldEqual, "")
			})
		})

		Convey("When timestamps are missing", func() {
			records := []model.VisitRecord{{
				ID:        9,
				Status:    model.StatusCompleted,
				Latitude:  ptr(-33.44),
				Longitude: ptr(-70.65),
			}}
			markers := mapprep.PrepareMarkers(records)

			So(markers, ShouldHaveLength, 1)
			So(markers[0].ElapsedOnSite, ShouldEqual, "")
		})

		Convey("When display names are partially missing", func() {
			base := model.VisitRecord{
				Status:    model.StatusCompleted,
				Latitude:  ptr(-33.44),
				Longitude: ptr(-70.65),
			}

			Convey("Then the label falls back through route, rep, then raw date", func() {
				v := base
				v.RouteName, v.RepName, v.ScheduledDate = "North Loop", "Maria", "2026-03-14"
				So(mapprep.PrepareMarkers([]model.VisitRecord{v})[0].Label, ShouldEqual, "North Loop")

				v.RouteName = ""
				So(mapprep.PrepareMarkers([]model.VisitRecord{v})[0].Label, ShouldEqual, "Maria")

				v.RepName = ""
				So(mapprep.PrepareMarkers([]model.VisitRecord{v})[0].Label, ShouldEqual, "2026-03-14")
			})
		})
	})
}
