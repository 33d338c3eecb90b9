package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ssargent/bicis/pkg/journal"
	"github.com/ssargent/bicis/pkg/rental"
	"github.com/ssargent/bicis/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

type rawResponse struct {
	Success bool            `json:"success"`
	Outcome string          `json:"outcome"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// setupTestServer creates a server over an in-memory store and journal
func setupTestServer(t *testing.T, withHistory bool) http.Handler {
	t.Helper()

	s, err := store.OpenBackend(store.NewMemoryBackend(nil), store.DefaultLayout())
	require.NoError(t, err)

	var (
		history  History
		recorder rental.Recorder
	)
	if withHistory {
		j, err := journal.OpenInMemory()
		require.NoError(t, err)
		t.Cleanup(func() { j.Close() })
		history, recorder = j, j
	}

	svc := rental.NewService(s, rental.ServiceConfig{Recorder: recorder})

	reg := prometheus.NewRegistry()
	server := NewServer(svc, history, ServerConfig{APIKey: testAPIKey}, NewMetrics(reg))
	server.SetGatherer(reg)
	return server.Routes()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, rawResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp rawResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestAuth(t *testing.T) {
	h := setupTestServer(t, false)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Missing X-API-Key header")
	assert.Equal(t, `APIKey header="X-API-Key"`, w.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")

	w, resp := do(t, h, "GET", "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestStations(t *testing.T) {
	h := setupTestServer(t, false)

	w, resp := do(t, h, "GET", "/api/v1/stations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stations []StationStatus
	require.NoError(t, json.Unmarshal(resp.Data, &stations))
	require.Len(t, stations, 5)
	assert.Equal(t, StationStatus{Station: 1, Available: 5, Free: 5, Capacity: 10}, stations[0])
}

func TestRentAndReturnFlow(t *testing.T) {
	h := setupTestServer(t, true)

	w, resp := do(t, h, "POST", "/api/v1/rentals", RentRequest{Station: 1, Client: "client01"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rent rental.RentResult
	require.NoError(t, json.Unmarshal(resp.Data, &rent))
	assert.Equal(t, "B000", rent.Bike)
	assert.Equal(t, rental.OK, rent.Outcome)
	assert.True(t, resp.Success)
	assert.Equal(t, "ok", resp.Outcome)
	assert.Empty(t, resp.Error)

	w, resp = do(t, h, "GET", "/api/v1/clients/client01/bikes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var held ClientBikes
	require.NoError(t, json.Unmarshal(resp.Data, &held))
	assert.Equal(t, []string{"B000"}, held.Bikes)

	w, resp = do(t, h, "GET", "/api/v1/stations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stations []StationStatus
	require.NoError(t, json.Unmarshal(resp.Data, &stations))
	assert.Equal(t, 4, stations[0].Available)

	w, resp = do(t, h, "POST", "/api/v1/returns", ReturnRequest{Station: 1, Bike: "B000", Client: "client01"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ret rental.ReturnResult
	require.NoError(t, json.Unmarshal(resp.Data, &ret))
	assert.Equal(t, "B000", ret.Bike)

	w, resp = do(t, h, "GET", "/api/v1/history?bike=B000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []journal.Entry
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, rental.KindRent, entries[0].Kind)
	assert.Equal(t, rental.KindReturn, entries[1].Kind)

	w, resp = do(t, h, "GET", "/api/v1/check", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report rental.CheckReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.True(t, report.OK())
	assert.Equal(t, 25, report.Bikes)
}

func TestSoftFailureStatuses(t *testing.T) {
	h := setupTestServer(t, false)

	_, _ = do(t, h, "POST", "/api/v1/rentals", RentRequest{Station: 2, Client: "client01"})

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status  int
		outcome rental.Outcome
	}{
		{"rent invalid station", "/api/v1/rentals", RentRequest{Station: 0, Client: "client01"},
			http.StatusBadRequest, rental.InvalidStation},
		{"rent invalid client", "/api/v1/rentals", RentRequest{Station: 1, Client: ""},
			http.StatusBadRequest, rental.InvalidClient},
		{"return unknown bike", "/api/v1/returns", ReturnRequest{Station: 1, Bike: "B999", Client: "client01"},
			http.StatusNotFound, rental.BikeNotFound},
		{"return by another client", "/api/v1/returns", ReturnRequest{Station: 1, Bike: "B005", Client: "client02"},
			http.StatusForbidden, rental.NotHolder},
		{"return to bad station", "/api/v1/returns", ReturnRequest{Station: 6, Bike: "B005", Client: "client01"},
			http.StatusBadRequest, rental.InvalidStation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, h, "POST", tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.outcome.String(), resp.Outcome)
			assert.Equal(t, tt.outcome.Err().Error(), resp.Error)
		})
	}
}

func TestRentFromEmptyStation(t *testing.T) {
	h := setupTestServer(t, false)

	for i := 0; i < 5; i++ {
		w, _ := do(t, h, "POST", "/api/v1/rentals", RentRequest{Station: 3, Client: "client01"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, resp := do(t, h, "POST", "/api/v1/rentals", RentRequest{Station: 3, Client: "client01"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, rental.ErrStationEmpty.Error(), resp.Error)
	assert.Equal(t, "station_empty", resp.Outcome)

	var res rental.RentResult
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	assert.Equal(t, rental.StationEmpty, res.Outcome)
}

func TestBadBodies(t *testing.T) {
	h := setupTestServer(t, false)

	req := httptest.NewRequest("POST", "/api/v1/rentals", strings.NewReader("{not json"))
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON")

	req = httptest.NewRequest("POST", "/api/v1/returns", strings.NewReader(`{"station":1,"bike":"B000","client":"c","extra":1}`))
	req.Header.Set("X-API-Key", testAPIKey)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBikes(t *testing.T) {
	h := setupTestServer(t, false)

	w, resp := do(t, h, "GET", "/api/v1/bikes", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var bikes []rental.Bike
	require.NoError(t, json.Unmarshal(resp.Data, &bikes))
	require.Len(t, bikes, 25)
	assert.Equal(t, rental.Bike{Code: "B024", Station: 5}, bikes[24])
}

func TestHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := setupTestServer(t, false)
		w, resp := do(t, h, "GET", "/api/v1/history", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "History is disabled", resp.Error)
	})

	t.Run("limit", func(t *testing.T) {
		h := setupTestServer(t, true)
		for station := 1; station <= 3; station++ {
			w, _ := do(t, h, "POST", "/api/v1/rentals", RentRequest{Station: station, Client: "client01"})
			require.Equal(t, http.StatusOK, w.Code)
		}

		w, resp := do(t, h, "GET", "/api/v1/history?limit=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var entries []journal.Entry
		require.NoError(t, json.Unmarshal(resp.Data, &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, 2, entries[0].Station)
		assert.Equal(t, 3, entries[1].Station)

		w, resp = do(t, h, "GET", "/api/v1/history?client=client01", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(resp.Data, &entries))
		assert.Len(t, entries, 3)

		w, _ = do(t, h, "GET", "/api/v1/history?limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h := setupTestServer(t, false)

	_, _ = do(t, h, "POST", "/api/v1/rentals", RentRequest{Station: 1, Client: "client01"})
	_, _ = do(t, h, "GET", "/api/v1/stations", nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `bicis_rental_operations_total{operation="rent",outcome="ok"} 1`)
	assert.Contains(t, body, `bicis_station_available_bikes{station="1"} 4`)
	assert.Contains(t, body, "bicis_http_requests_total")
	assert.Contains(t, body, `bicis_auth_requests_total{status="success"} 2`)
}

func TestSwagger(t *testing.T) {
	h := setupTestServer(t, false)

	req := httptest.NewRequest("GET", "/swagger/swagger.json", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	paths, ok := doc["paths"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, paths, "/rentals")
	assert.Contains(t, paths, "/returns")
	definitions, ok := doc["definitions"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, definitions, "APIResponse")

	req = httptest.NewRequest("GET", "/swagger/index.html", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger-ui")
}

func TestNilMetrics(t *testing.T) {
	s, err := store.OpenBackend(store.NewMemoryBackend(nil), store.DefaultLayout())
	require.NoError(t, err)
	server := NewServer(rental.NewService(s, rental.ServiceConfig{}), nil, ServerConfig{APIKey: testAPIKey}, nil)

	w, _ := do(t, server.Routes(), "POST", "/api/v1/rentals", RentRequest{Station: 1, Client: "client01"})
	assert.Equal(t, http.StatusOK, w.Code)
}
