package gtfsrt

import (
	"fmt"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Feed is the decoded content of one FeedMessage that the station builders need.
type Feed struct {
	Timestamp time.Time
	Trips     []TripUpdate
	Alerts    []Alert
}

// Decode parses protobuf bytes into a FeedMessage.
func Decode(b []byte) (*gtfsrtpb.FeedMessage, error) {
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(b, &fm); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return &fm, nil
}

// Parse extracts trip updates and alerts from an already decoded message.
// Entities without a trip id and stop updates without a stop id are skipped.
func Parse(fm *gtfsrtpb.FeedMessage) *Feed {
	f := &Feed{}
	if fm == nil {
		return f
	}
	if ts := fm.GetHeader().GetTimestamp(); ts > 0 {
		f.Timestamp = time.Unix(int64(ts), 0)
	}
	for _, e := range fm.GetEntity() {
		if tu := e.GetTripUpdate(); tu != nil {
			if t, ok := parseTripUpdate(tu); ok {
				f.Trips = append(f.Trips, t)
			}
		}
		if a := e.GetAlert(); a != nil {
			f.Alerts = append(f.Alerts, parseAlert(e.GetId(), a))
		}
	}
	return f
}

// ParseBytes is Decode followed by Parse.
func ParseBytes(b []byte) (*Feed, error) {
	fm, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return Parse(fm), nil
}

func parseTripUpdate(tu *gtfsrtpb.TripUpdate) (TripUpdate, bool) {
	trip := tu.GetTrip()
	if trip.GetTripId() == "" {
		return TripUpdate{}, false
	}
	t := TripUpdate{
		TripID:    trip.GetTripId(),
		RouteID:   trip.GetRouteId(),
		StartDate: trip.GetStartDate(),
		Stops:     make([]StopTime, 0, len(tu.GetStopTimeUpdate())),
	}
	for _, stu := range tu.GetStopTimeUpdate() {
		if stu.GetStopId() == "" {
			continue
		}
		st := StopTime{StopID: stu.GetStopId()}
		if ev := stu.GetArrival(); ev != nil && ev.Time != nil {
			st.Arrival = time.Unix(ev.GetTime(), 0)
		}
		if ev := stu.GetDeparture(); ev != nil && ev.Time != nil {
			st.Departure = time.Unix(ev.GetTime(), 0)
		}
		t.Stops = append(t.Stops, st)
	}
	return t, true
}

func parseAlert(id string, a *gtfsrtpb.Alert) Alert {
	ra := Alert{
		ID:          id,
		Header:      translatedText(a.GetHeaderText()),
		Description: translatedText(a.GetDescriptionText()),
	}
	if a.Cause != nil {
		ra.Cause = a.GetCause().String()
	}
	if a.Effect != nil {
		ra.Effect = a.GetEffect().String()
	}
	for _, ap := range a.GetActivePeriod() {
		var p ActivePeriod
		if ap.Start != nil {
			p.Start = time.Unix(int64(ap.GetStart()), 0)
		}
		if ap.End != nil {
			p.End = time.Unix(int64(ap.GetEnd()), 0)
		}
		ra.ActivePeriods = append(ra.ActivePeriods, p)
	}
	for _, ie := range a.GetInformedEntity() {
		if rid := ie.GetRouteId(); rid != "" {
			ra.RouteIDs = append(ra.RouteIDs, rid)
		}
		if tid := ie.GetTrip().GetTripId(); tid != "" {
			ra.TripIDs = append(ra.TripIDs, tid)
		}
		if sid := ie.GetStopId(); sid != "" {
			ra.StopIDs = append(ra.StopIDs, sid)
		}
	}
	return ra
}

// translatedText prefers English, then an untagged translation, then the first.
func translatedText(ts *gtfsrtpb.TranslatedString) string {
	tr := ts.GetTranslation()
	if len(tr) == 0 {
		return ""
	}
	untagged := ""
	for _, t := range tr {
		switch t.GetLanguage() {
		case "en":
			return t.GetText()
		case "":
			if untagged == "" {
				untagged = t.GetText()
			}
		}
	}
	if untagged != "" {
		return untagged
	}
	return tr[0].GetText()
}
