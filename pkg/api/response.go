package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ssargent/bicis/pkg/rental"
)

// outcomeStatus maps soft failures onto HTTP status codes
func outcomeStatus(o rental.Outcome) int {
	switch o {
	case rental.OK:
		return http.StatusOK
	case rental.InvalidStation, rental.InvalidClient:
		return http.StatusBadRequest
	case rental.BikeNotFound:
		return http.StatusNotFound
	case rental.NotHolder:
		return http.StatusForbidden
	case rental.StationEmpty, rental.StationFull:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// respond sends data in a successful envelope
func respond(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// respondError sends a failed envelope with no data
func respondError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, APIResponse{Error: fmt.Sprintf(format, args...)})
}

// respondOutcome sends the result of a rent or return. Soft failures keep
// the result as data so clients see which station and client were refused.
func respondOutcome(w http.ResponseWriter, outcome rental.Outcome, result interface{}) {
	resp := APIResponse{
		Success: outcome == rental.OK,
		Outcome: outcome.String(),
		Data:    result,
	}
	if err := outcome.Err(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, outcomeStatus(outcome), resp)
}
