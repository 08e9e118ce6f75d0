// Package mapprep projects completed, geotagged visits into the minimal
// marker model consumed by the external map renderer.
//
// This package only selects and projects; centering, bounding boxes and
// zoom are the renderer's responsibility.
package mapprep

import (
	"github.com/fieldray/kanvass/internal/domain/model"
	"github.com/fieldray/kanvass/internal/domain/rollup"
)

// PrepareMarkers selects records whose status resolves to Completed and
// that carry both check-in coordinates, projecting each into a Marker.
// Anything else is excluded, including completed visits missing a
// coordinate and pending visits with valid coordinates. An invalid
// on-site interval leaves
// the elapsed label empty rather than dropping the marker.
func PrepareMarkers(records []model.VisitRecord) []model.Marker {
	markers := make([]model.Marker, 0, len(records))
	for _, v := range records {
		if v.Status != model.StatusCompleted {
			continue
		}
		if v.Latitude == nil || v.Longitude == nil {
			continue
		}
		elapsed, err := rollup.ElapsedLabel(v)
		if err != nil {
			elapsed = ""
		}
		markers = append(markers, model.Marker{
			ID:            v.ID,
			Lat:           *v.Latitude,
			Lng:           *v.Longitude,
			Label:         markerLabel(v),
			CheckInTime:   v.CheckInTime,
			CheckoutTime:  v.CheckoutTime,
			ElapsedOnSite: elapsed,
		})
	}
	return markers
}

// markerLabel prefers the client display name, falling back through route
// and rep names before the raw scheduled date.
func markerLabel(v model.VisitRecord) string {
	switch {
	case v.ClientName != "":
		return v.ClientName
	case v.RouteName != "":
		return v.RouteName
	case v.RepName != "":
		return v.RepName
	default:
		return v.ScheduledDate
	}
}
