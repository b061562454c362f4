package mtapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/theoremus-urban-solutions/mtapi/directory"
	"github.com/theoremus-urban-solutions/mtapi/geo"
	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/stations"
	"github.com/theoremus-urban-solutions/mtapi/textmatch"
)

type envelope struct {
	Data    any        `json:"data"`
	Updated *time.Time `json:"updated"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// Station is the wire shape of a station record.
type Station struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	Location [2]float64            `json:"location"`
	System   stations.System       `json:"system"`
	Routes   []string              `json:"routes"`
	Stops    map[string][2]float64 `json:"stops,omitempty"`
	N        []stations.Arrival    `json:"N"`
	S        []stations.Arrival    `json:"S"`
	HasData  bool                  `json:"has_data"`
	Distance *float64              `json:"distance,omitempty"`
	Match    string                `json:"match,omitempty"`
}

type alert struct {
	*gtfsrt.Alert
	System stations.System `json:"system"`
	Match  string          `json:"match"`
}

func newStation(h directory.Hit, withDistance bool) Station {
	r := h.Record
	s := Station{
		ID:       r.ID,
		Name:     r.Name,
		Location: r.Location.Pair(),
		System:   h.System,
		Routes:   r.Routes,
		N:        r.Arrivals[stations.North],
		S:        r.Arrivals[stations.South],
		HasData:  r.HasData,
	}
	if s.Routes == nil {
		s.Routes = []string{}
	}
	if s.N == nil {
		s.N = []stations.Arrival{}
	}
	if s.S == nil {
		s.S = []stations.Arrival{}
	}
	if len(r.ChildStops) > 0 {
		s.Stops = make(map[string][2]float64, len(r.ChildStops))
		for id, p := range r.ChildStops {
			s.Stops[id] = p.Pair()
		}
	}
	if withDistance {
		d := h.Distance
		s.Distance = &d
	}
	if h.Tier != textmatch.NoMatch {
		s.Match = h.Tier.String()
	}
	return s
}

// StationList projects query results for JSON output.
func StationList(res directory.Results, withDistance bool) []Station {
	out := make([]Station, len(res.Hits))
	for i, h := range res.Hits {
		out[i] = newStation(h, withDistance)
	}
	return out
}

func updatedAt(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "error", err)
	}
}

func writeData(w http.ResponseWriter, data any, updated time.Time) {
	writeJSON(w, http.StatusOK, envelope{Data: data, Updated: updatedAt(updated)})
}

// errorStatus maps directory errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, stations.ErrInvalidInput), errors.Is(err, geo.ErrInvalidCoordinate):
		return http.StatusBadRequest
	case errors.Is(err, stations.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, stations.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeQueryError reports a request parameter error under its own message.
func writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	msg := "Invalid request"
	var qe *queryError
	if errors.As(err, &qe) {
		msg = qe.Msg
	}
	writeError(w, r, msg, err)
}

// writeError answers with msg and the error itself as details. Internal
// errors are logged and their text withheld.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := errorStatus(err)
	resp := ErrorResponse{Error: msg}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else if err != nil {
		resp.Details = map[string]any{"reason": err.Error()}
	}
	writeJSON(w, status, resp)
}
