package mtapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/theoremus-urban-solutions/mtapi/directory"
	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/refresh"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

type ctxKey struct{}

// systemCtx resolves the {system} segment of per-system routes. "all" and
// unknown names are rejected here.
func (s *Server) systemCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "system")
		sys, err := stations.ParseSystem(name, "")
		if err == nil && sys == stations.All {
			err = errors.New("all is not a system")
		}
		if err != nil {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found", Details: map[string]any{"system": name}})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sys)))
	})
}

func systemFrom(r *http.Request) stations.System {
	sys, _ := r.Context().Value(ctxKey{}).(stations.System)
	return sys
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"title":   "MTAPI",
		"systems": s.dir.Systems(),
		"readme":  "Station locations, arrivals and alerts for the subway, LIRR and Metro-North",
	})
}

// handleByLocation defaults to the subway. system=all merges every system
// within radius.
func (s *Server) handleByLocation(w http.ResponseWriter, r *http.Request) {
	q, err := parseLocation(r, stations.Subway)
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	s.nearby(w, r, q)
}

func (s *Server) handleSystemByLocation(w http.ResponseWriter, r *http.Request) {
	q, err := parseLocation(r, systemFrom(r))
	if err != nil {
		writeQueryError(w, r, err)
		return
	}
	q.system = systemFrom(r)
	s.nearby(w, r, q)
}

// nearby answers limit=0 with an empty list. The query still runs so an
// unavailable system is reported and updated is set.
func (s *Server) nearby(w http.ResponseWriter, r *http.Request, q locationQuery) {
	res, err := s.dir.QueryProximity(q.point, q.system, max(q.limit, 1), q.radius)
	if err != nil {
		writeError(w, r, "Location search failed", err)
		return
	}
	if q.limit == 0 {
		res.Hits = res.Hits[:0]
	}
	writeData(w, StationList(res, true), res.Updated)
}

// handleSubwayByRoute redirects lower case routes to their upper case form,
// the only form subway route ids are stored in.
func (s *Server) handleSubwayByRoute(w http.ResponseWriter, r *http.Request) {
	route := chi.URLParam(r, "route")
	if cfg, err := s.dir.Config(stations.Subway); err == nil && cfg.UppercaseRoutes && isLower(route) {
		http.Redirect(w, r, "/by-route/"+strings.ToUpper(route), http.StatusMovedPermanently)
		return
	}
	s.byRoute(w, r, route, stations.Subway)
}

func (s *Server) handleByRoute(w http.ResponseWriter, r *http.Request) {
	s.byRoute(w, r, chi.URLParam(r, "route"), systemFrom(r))
}

func (s *Server) byRoute(w http.ResponseWriter, r *http.Request, route string, sys stations.System) {
	res, err := s.dir.QueryByRoute(route, sys)
	if err != nil {
		writeError(w, r, "Route not found", err)
		return
	}
	writeData(w, StationList(res, false), res.Updated)
}

// handleByIDs resolves a comma separated list of subway ids, or ids of the
// system given by ?system=.
func (s *Server) handleByIDs(w http.ResponseWriter, r *http.Request) {
	sys, err := stations.ParseSystem(r.URL.Query().Get("system"), stations.Subway)
	if err != nil {
		writeError(w, r, "Unknown system", err)
		return
	}
	s.byIDs(w, r, splitIDs(chi.URLParam(r, "ids")), sys)
}

func (s *Server) handleByID(w http.ResponseWriter, r *http.Request) {
	s.byIDs(w, r, splitIDs(chi.URLParam(r, "id")), systemFrom(r))
}

func (s *Server) byIDs(w http.ResponseWriter, r *http.Request, ids []string, sys stations.System) {
	res, err := s.dir.QueryByIDs(ids, sys)
	if err == nil && len(res.Hits) == 0 {
		err = stations.ErrNotFound
	}
	if err != nil {
		writeError(w, r, "Station not found", err)
		return
	}
	writeData(w, StationList(res, false), res.Updated)
}

func (s *Server) handleSubwayRoutes(w http.ResponseWriter, r *http.Request) {
	s.listRoutes(w, r, stations.Subway)
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	s.listRoutes(w, r, systemFrom(r))
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request, sys stations.System) {
	routes, updated, err := s.dir.ListRoutes(sys)
	if err != nil {
		writeError(w, r, "Routes unavailable", err)
		return
	}
	writeData(w, routes, updated)
}

func (s *Server) handleStops(w http.ResponseWriter, r *http.Request) {
	res, err := s.dir.Stations(systemFrom(r))
	if err != nil {
		writeError(w, r, "Stops unavailable", err)
		return
	}
	writeData(w, StationList(res, false), res.Updated)
}

// handleSearch defaults to every system. Merged results are capped at the
// configured search limit.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sys, err := stations.ParseSystem(r.URL.Query().Get("system"), stations.All)
	if err != nil {
		writeError(w, r, "Unknown system", err)
		return
	}
	s.search(w, r, sys)
}

func (s *Server) handleSystemSearch(w http.ResponseWriter, r *http.Request) {
	s.search(w, r, systemFrom(r))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, sys stations.System) {
	text, ok := requireQuery(w, r)
	if !ok {
		return
	}
	res, err := s.dir.QuerySearch(text, sys)
	if err != nil {
		writeError(w, r, "Search failed", err)
		return
	}
	if sys == stations.All && s.cfg.SearchLimit > 0 && len(res.Hits) > s.cfg.SearchLimit {
		res.Hits = res.Hits[:s.cfg.SearchLimit]
	}
	writeData(w, StationList(res, false), res.Updated)
}

func (s *Server) handleAlertSearch(w http.ResponseWriter, r *http.Request) {
	sys, err := stations.ParseSystem(r.URL.Query().Get("system"), stations.All)
	if err != nil {
		writeError(w, r, "Unknown system", err)
		return
	}
	text, ok := requireQuery(w, r)
	if !ok {
		return
	}
	hits, updated, err := s.dir.SearchAlerts(text, sys)
	if err != nil {
		writeError(w, r, "Alert search failed", err)
		return
	}
	out := make([]alert, len(hits))
	for i, h := range hits {
		out[i] = alert{Alert: h.Alert, System: h.System, Match: h.Tier.String()}
	}
	writeData(w, out, updated)
}

// handleSystemAlerts lists the alerts of a system, narrowed by ?route=.
func (s *Server) handleSystemAlerts(w http.ResponseWriter, r *http.Request) {
	sys := systemFrom(r)
	var (
		list    []*gtfsrt.Alert
		updated time.Time
		err     error
	)
	if route := strings.TrimSpace(r.URL.Query().Get("route")); route != "" {
		list, updated, err = s.dir.AlertsForRoute(route, sys)
	} else {
		list, updated, err = s.dir.Alerts(sys)
	}
	if err != nil {
		writeError(w, r, "Alerts unavailable", err)
		return
	}
	out := make([]alert, len(list))
	for i, a := range list {
		out[i] = alert{Alert: a, System: sys}
	}
	writeData(w, out, updated)
}

func requireQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, "Missing q parameter", stations.ErrInvalidInput)
		return "", false
	}
	return q, true
}

type refreshResponse struct {
	System     stations.System `json:"system"`
	Cycle      string          `json:"cycle,omitempty"`
	Published  bool            `json:"published"`
	Coalesced  bool            `json:"coalesced"`
	Retained   bool            `json:"retained"`
	DurationMS int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
}

func newRefreshResponse(sys stations.System, res refresh.Result) refreshResponse {
	out := refreshResponse{
		System:     sys,
		Published:  res.Published,
		Coalesced:  res.Coalesced,
		Retained:   res.Retained,
		DurationMS: res.Duration.Milliseconds(),
	}
	if !res.Coalesced {
		out.Cycle = res.Cycle.String()
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// handleRefresh runs a refresh of one system, or of every system for "all",
// and waits for it. ?wait=false only starts a cycle if none is running.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sys, err := stations.ParseSystem(chi.URLParam(r, "system"), "")
	if err != nil {
		writeError(w, r, "Unknown system", err)
		return
	}
	targets := []stations.System{sys}
	if sys == stations.All {
		targets = s.dir.Systems()
	}
	run := s.dir.ForceRefresh
	if r.URL.Query().Get("wait") == "false" {
		run = s.dir.Refresh
	}

	out := make([]refreshResponse, 0, len(targets))
	for _, t := range targets {
		res, err := run(r.Context(), t)
		if err != nil {
			writeError(w, r, "Unknown system", err)
			return
		}
		out = append(out, newRefreshResponse(t, res))
	}
	writeData(w, out, time.Time{})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.dir.Health()
	status := http.StatusOK
	if !h.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, struct {
		Status string `json:"status"`
		directory.Health
	}{Status: healthStatus(h), Health: h})
}

func healthStatus(h directory.Health) string {
	if h.Healthy {
		return "ok"
	}
	return "degraded"
}
