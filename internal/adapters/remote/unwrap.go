package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldray/kanvass/internal/domain/model"
	"github.com/fieldray/kanvass/pkg/metrics"
)

// rawVisit mirrors the collaborator's journey-plan JSON. Status may be a
// legacy integer code or a symbolic string; timestamps are RFC3339.
type rawVisit struct {
	ID                int64      `json:"id"`
	RepID             string     `json:"rep_id"`
	ClientID          string     `json:"client_id"`
	RepName           string     `json:"rep_name"`
	ClientName        string     `json:"client_name"`
	RouteName         string     `json:"route_name"`
	ScheduledDate     string     `json:"scheduled_date"`
	ScheduledTime     string     `json:"scheduled_time"`
	Status            any        `json:"status"`
	CheckInTime       *time.Time `json:"check_in_time"`
	CheckoutTime      *time.Time `json:"checkout_time"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	CheckoutLatitude  *float64   `json:"checkout_latitude"`
	CheckoutLongitude *float64   `json:"checkout_longitude"`
	Notes             string     `json:"notes"`
}

// wrappedResponse is the alternative envelope some collaborator
// deployments use: the same array nested under "data".
type wrappedResponse struct {
	Data []rawVisit `json:"data"`
}

// DecodeWarning reports a record that could not be decoded at the
// boundary. The rest of the payload is unaffected.
type DecodeWarning struct {
	VisitID int64  `json:"visit_id"`
	Message string `json:"message"`
}

// UnwrapRecords decodes a collaborator payload that is either a bare
// JSON array or an object wrapping the array under "data". This is the
// single place the dual payload shape is handled; everything downstream
// sees a plain slice.
func UnwrapRecords(body []byte) ([]model.VisitRecord, []DecodeWarning, error) {
	var raws []rawVisit
	if err := json.Unmarshal(body, &raws); err != nil {
		var wrapped wrappedResponse
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, nil, fmt.Errorf("unwrap payload: %w", err)
		}
		raws = wrapped.Data
	}

	records := make([]model.VisitRecord, 0, len(raws))
	var warnings []DecodeWarning
	for _, raw := range raws {
		v, err := decodeVisit(raw)
		if err != nil {
			metrics.RecordDecodeWarning()
			warnings = append(warnings, DecodeWarning{VisitID: raw.ID, Message: err.Error()})
			continue
		}
		records = append(records, v)
	}
	return records, warnings, nil
}

// decodeVisit resolves the status field and copies everything else
// through. The legacy integer code, when present, is preserved on the
// record.
func decodeVisit(raw rawVisit) (model.VisitRecord, error) {
	status, rawCode, err := model.ResolveStatus(raw.Status)
	if err != nil {
		return model.VisitRecord{}, fmt.Errorf("visit %d: %w", raw.ID, err)
	}
	return model.VisitRecord{
		ID:                raw.ID,
		RepID:             raw.RepID,
		ClientID:          raw.ClientID,
		RepName:           raw.RepName,
		ClientName:        raw.ClientName,
		RouteName:         raw.RouteName,
		ScheduledDate:     raw.ScheduledDate,
		ScheduledTime:     raw.ScheduledTime,
		Status:            status,
		RawStatusCode:     rawCode,
		CheckInTime:       raw.CheckInTime,
		CheckoutTime:      raw.CheckoutTime,
		Latitude:          raw.Latitude,
		Longitude:         raw.Longitude,
		CheckoutLatitude:  raw.CheckoutLatitude,
		CheckoutLongitude: raw.CheckoutLongitude,
		Notes:             raw.Notes,
	}, nil
}
