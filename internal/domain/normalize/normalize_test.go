package normalize_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fieldray/kanvass/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDay(t *testing.T) {
	Convey("Given raw scheduled-date values", t, func() {
		want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

		Convey("When the value is a bare date", func() {
			day, err := normalize.Day("2026-03-14")
			So(err, ShouldBeNil)
			So(day, ShouldEqual, want)
		})

		Convey("When the value is an ISO datetime", func() {
			day, err := normalize.Day("2026-03-14T09:30:00Z")
			So(err, ShouldBeNil)
			So(day, ShouldEqual, want)
		})

		Convey("When the value is a space-separated datetime", func() {
			day, err := normalize.Day("2026-03-14 09:30:00")
			So(err, ShouldBeNil)
			So(day, ShouldEqual, want)
		})

		Convey("When the value carries surrounding whitespace", func() {
			day, err := normalize.Day("  2026-03-14T23:59:59Z ")
			So(err, ShouldBeNil)
			So(day, ShouldEqual, want)
		})

		Convey("Then all encodings of one day share a canonical value", func() {
			encodings := []string{
				"2026-03-14",
				"2026-03-14T00:00:00Z",
				"2026-03-14T23:59:59+05:00",
				"2026-03-14 12:00:00",
			}
			for _, raw := range encodings {
				day, err := normalize.Day(raw)
				So(err, ShouldBeNil)
				So(day, ShouldEqual, want)
			}
		})

		Convey("When the value is empty", func() {
			_, err := normalize.Day("")
			So(err, ShouldNotBeNil)
			So(errors.Is(err, normalize.ErrMalformedDate), ShouldBeTrue)
		})

		Convey("When the date portion is not a calendar date", func() {
			for _, raw := range []string{"14/03/2026", "2026-13-01", "not-a-date", "2026-02-30"} {
				_, err := normalize.Day(raw)
				So(err, ShouldNotBeNil)
				So(errors.Is(err, normalize.ErrMalformedDate), ShouldBeTrue)
			}
		})

		Convey("When the error is inspected", func() {
			_, err := normalize.Day("garbage")
			var malformed *normalize.MalformedDateError
			So(errors.As(err, &malformed), ShouldBeTrue)
			So(malformed.Raw, ShouldEqual, "garbage")
		})
	})
}

func TestKey(t *testing.T) {
	Convey("Given raw dates", t, func() {
		Convey("When building grouping keys", func() {
			key, err := normalize.Key("2026-03-14T09:30:00Z")
			So(err, ShouldBeNil)
			So(key, ShouldEqual, "2026-03-14")
		})

		Convey("When the raw date is malformed", func() {
			_, err := normalize.Key("bogus")
			So(errors.Is(err, normalize.ErrMalformedDate), ShouldBeTrue)
		})
	})
}

func TestFormatDay(t *testing.T) {
	Convey("Given a canonical day", t, func() {
		day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
		So(normalize.FormatDay(day), ShouldEqual, "2026-01-05")
	})
}
