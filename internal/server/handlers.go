package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odclab/dcmon/internal/derive"
	"github.com/odclab/dcmon/internal/export"
	"github.com/odclab/dcmon/internal/lib/logger/sl"
	"github.com/odclab/dcmon/internal/model"
)

// capacityItem is a capacity row with the derived total pseudo-zone attached.
type capacityItem struct {
	model.CapacityRow
	Total model.ZoneCapacity `json:"total"`
}

func toCapacityItem(row *model.CapacityRow) *capacityItem {
	if row == nil {
		return nil
	}
	return &capacityItem{CapacityRow: *row, Total: derive.TotalZone(row)}
}

type capacityResponse struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Rows      []capacityItem `json:"rows"`
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	rows, at, err := s.views.History.Snapshot()
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "capacity data unavailable")
		return
	}

	items := make([]capacityItem, 0, len(rows))
	for i := range rows {
		items = append(items, *toCapacityItem(&rows[i]))
	}

	s.respondJSON(w, http.StatusOK, capacityResponse{FetchedAt: at, Rows: items})
}

type currentPreviousResponse struct {
	FetchedAt time.Time     `json:"fetched_at"`
	Current   *capacityItem `json:"current"`
	Previous  *capacityItem `json:"previous"`
}

func (s *Server) handleCurrentPrevious(w http.ResponseWriter, r *http.Request) {
	cp, at, err := s.views.CurrentPrev.Snapshot()
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "capacity data unavailable")
		return
	}

	s.respondJSON(w, http.StatusOK, currentPreviousResponse{
		FetchedAt: at,
		Current:   toCapacityItem(cp.Current),
		Previous:  toCapacityItem(cp.Previous),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rows, _, err := s.views.History.Snapshot()
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "capacity data unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(s.now())+`"`)

	if err := export.WriteHistory(w, rows); err != nil {
		s.log.Error("failed to write capacity export", sl.Err(err))
	}
}

type seriesResponse struct {
	FetchedAt time.Time           `json:"fetched_at"`
	Buckets   []derive.TimeBucket `json:"buckets"`
}

func (s *Server) handlePowerSeries(w http.ResponseWriter, r *http.Request) {
	readings, at, err := s.views.Power.Snapshot()
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "power data unavailable")
		return
	}

	s.respondJSON(w, http.StatusOK, seriesResponse{
		FetchedAt: at,
		Buckets:   derive.GroupExact(readings),
	})
}

func (s *Server) handleTemperatureSeries(w http.ResponseWriter, r *http.Request) {
	readings, at, err := s.views.Temperature.Snapshot()
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "temperature data unavailable")
		return
	}

	s.respondJSON(w, http.StatusOK, seriesResponse{
		FetchedAt: at,
		Buckets:   derive.GroupSmoothed(readings),
	})
}

type monthlyResponse struct {
	Site   string               `json:"site"`
	Months int                  `json:"months"`
	Stats  []derive.MonthlyStat `json:"stats"`
	Chart  []derive.HourlyPoint `json:"chart"`
}

// handleMonthly fetches the site's full reading history once per analysis
// run, per the monthly comparison view's usage pattern; there is no timer
// behind this endpoint.
func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")

	months := s.defaultMonths
	if q := r.URL.Query().Get("months"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			months = n
		}
	}

	readings, err := s.source.MonthlyReadings(r.Context(), site)
	if err != nil {
		s.log.Error("failed to fetch monthly readings", sl.Err(err))
		s.respondError(w, http.StatusBadGateway, "failed to load readings for "+site)
		return
	}

	s.respondJSON(w, http.StatusOK, monthlyResponse{
		Site:   site,
		Months: months,
		Stats:  derive.MonthlyStats(readings, months, s.now()),
		Chart:  derive.HourlySeries(readings),
	})
}

type scanResponse struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Results   json.RawMessage `json:"results"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	results, at, err := s.views.Scan.Snapshot()
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "scan data unavailable")
		return
	}

	s.respondJSON(w, http.StatusOK, scanResponse{FetchedAt: at, Results: results})
}
