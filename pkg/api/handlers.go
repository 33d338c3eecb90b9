package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ssargent/bicis/pkg/journal"
)

const maxBodySize = 4096

// handleHealth godoc
//
//	@Summary		Health check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, map[string]string{"status": "healthy"})
}

// handleStations godoc
//
//	@Summary		Bikes available per station
//	@Tags			stations
//	@Produce		json
//	@Success		200	{array}		StationStatus
//	@Failure		500	{object}	APIResponse
//	@Router			/stations [get]
//	@Security		ApiKeyAuth
func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.AvailableCounts()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read stations: %v", err)
		return
	}
	s.metrics.UpdateStations(counts)

	capacity := s.service.Capacity()
	stations := make([]StationStatus, len(counts))
	for i, c := range counts {
		stations[i] = StationStatus{Station: i + 1, Available: c, Free: capacity - c, Capacity: capacity}
	}
	respond(w, stations)
}

// handleBikes godoc
//
//	@Summary		Every bike and its state
//	@Tags			bikes
//	@Produce		json
//	@Success		200	{array}		rental.Bike
//	@Router			/bikes [get]
//	@Security		ApiKeyAuth
func (s *Server) handleBikes(w http.ResponseWriter, r *http.Request) {
	bikes, err := s.service.Bikes()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read bikes: %v", err)
		return
	}
	respond(w, bikes)
}

// handleClientBikes godoc
//
//	@Summary		Bikes rented by a client
//	@Tags			bikes
//	@Produce		json
//	@Param			client	path		string	true	"Client code"
//	@Success		200		{object}	ClientBikes
//	@Router			/clients/{client}/bikes [get]
//	@Security		ApiKeyAuth
func (s *Server) handleClientBikes(w http.ResponseWriter, r *http.Request) {
	client := chi.URLParam(r, "client")
	codes, err := s.service.RentedBikes(client)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read bikes: %v", err)
		return
	}
	respond(w, ClientBikes{Client: client, Bikes: codes})
}

// handleRent godoc
//
//	@Summary		Rent the first bike parked at a station
//	@Tags			rentals
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RentRequest	true	"Station and client"
//	@Success		200		{object}	rental.RentResult
//	@Failure		400		{object}	APIResponse
//	@Failure		409		{object}	APIResponse
//	@Router			/rentals [post]
//	@Security		ApiKeyAuth
func (s *Server) handleRent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}

	res, err := s.service.RentBike(req.Station, req.Client)
	if err != nil {
		s.metrics.RecordRentalOperation("rent", statusError, time.Since(start))
		respondError(w, http.StatusInternalServerError, "Failed to rent bike: %v", err)
		return
	}
	s.metrics.RecordRentalOperation("rent", res.Outcome.String(), time.Since(start))

	respondOutcome(w, res.Outcome, res)
}

// handleReturn godoc
//
//	@Summary		Return a rented bike to a station
//	@Tags			rentals
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReturnRequest	true	"Station, bike and client"
//	@Success		200		{object}	rental.ReturnResult
//	@Failure		400		{object}	APIResponse
//	@Failure		403		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Failure		409		{object}	APIResponse
//	@Router			/returns [post]
//	@Security		ApiKeyAuth
func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ReturnRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "%v", err)
		return
	}

	res, err := s.service.ReturnBike(req.Station, req.Bike, req.Client)
	if err != nil {
		s.metrics.RecordRentalOperation("return", statusError, time.Since(start))
		respondError(w, http.StatusInternalServerError, "Failed to return bike: %v", err)
		return
	}
	s.metrics.RecordRentalOperation("return", res.Outcome.String(), time.Since(start))

	respondOutcome(w, res.Outcome, res)
}

// handleCheck godoc
//
//	@Summary		Consistency check of counters and records
//	@Tags			diagnostics
//	@Produce		json
//	@Success		200	{object}	rental.CheckReport
//	@Router			/check [get]
//	@Security		ApiKeyAuth
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Check()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to check store: %v", err)
		return
	}
	s.metrics.UpdateRented(report.Rented)
	respond(w, report)
}

// handleHistory godoc
//
//	@Summary		Rental history
//	@Tags			diagnostics
//	@Produce		json
//	@Param			limit	query		int		false	"Most recent entries to return"
//	@Param			bike	query		string	false	"Only entries for this bike"
//	@Param			client	query		string	false	"Only entries for this client"
//	@Success		200		{array}		journal.Entry
//	@Failure		404		{object}	APIResponse
//	@Router			/history [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotFound, "History is disabled")
		return
	}

	q := r.URL.Query()
	var (
		entries []journal.Entry
		err     error
	)
	switch {
	case q.Get("bike") != "":
		entries, err = s.history.ForBike(q.Get("bike"))
	case q.Get("client") != "":
		entries, err = s.history.ForClient(q.Get("client"))
	default:
		limit := 50
		if raw := q.Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 0 {
				respondError(w, http.StatusBadRequest, "Invalid limit")
				return
			}
		}
		entries, err = s.history.List(limit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read history: %v", err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	respond(w, entries)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large")
		}
		return fmt.Errorf("invalid JSON in request body: %w", err)
	}
	return nil
}
