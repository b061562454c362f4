package gtfsrt

import "time"

// StopTime is one stop_time_update of a trip. Zero times mean the feed omitted
// that side of the prediction.
type StopTime struct {
	StopID    string
	Arrival   time.Time
	Departure time.Time
}

// TripUpdate is a trip with its remaining stop predictions in feed order.
type TripUpdate struct {
	TripID    string
	RouteID   string
	StartDate string
	Stops     []StopTime
}

// StopIndex returns the position of stopID in the trip, or -1.
func (t *TripUpdate) StopIndex(stopID string) int {
	for i, s := range t.Stops {
		if s.StopID == stopID {
			return i
		}
	}
	return -1
}

// ActivePeriod is one window of an alert. A zero bound is open.
type ActivePeriod struct {
	Start time.Time `json:"start,omitzero"`
	End   time.Time `json:"end,omitzero"`
}

// Alert is a simplified GTFS-RT service alert.
type Alert struct {
	ID            string         `json:"id"`
	Header        string         `json:"header"`
	Description   string         `json:"description"`
	Cause         string         `json:"cause,omitempty"`
	Effect        string         `json:"effect,omitempty"`
	ActivePeriods []ActivePeriod `json:"active_period,omitempty"`
	RouteIDs      []string       `json:"routes,omitempty"`
	StopIDs       []string       `json:"stops,omitempty"`
	TripIDs       []string       `json:"trips,omitempty"`
}
