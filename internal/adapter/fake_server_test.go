package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

// fakeDune is a scripted Dune API. Each status poll consumes the next state;
// the last state repeats once the script is exhausted.
type fakeDune struct {
	mu sync.Mutex

	states        []string
	rows          []map[string]interface{}
	submitStatus  int
	statusStatus  int
	resultsStatus int
	executionID   string

	polls     int
	submitted []map[string]interface{}
	queryIDs  []string
	apiKeys   []string
}

func newFakeDune(states ...string) *fakeDune {
	return &fakeDune{states: states, executionID: "01HEXEC"}
}

func (f *fakeDune) start(t *testing.T) *httptest.Server {
	t.Helper()

	r := mux.NewRouter()
	r.HandleFunc("/query/{id}/execute", f.handleExecute).Methods(http.MethodPost)
	r.HandleFunc("/execution/{id}/status", f.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/execution/{id}/results", f.handleResults).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeDune) handleExecute(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.apiKeys = append(f.apiKeys, r.Header.Get("X-Dune-API-Key"))
	f.queryIDs = append(f.queryIDs, mux.Vars(r)["id"])

	if f.submitStatus != 0 {
		http.Error(w, `{"error":"submit rejected"}`, f.submitStatus)
		return
	}

	var body struct {
		QueryParameters map[string]interface{} `json:"query_parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.submitted = append(f.submitted, body.QueryParameters)

	writeJSON(w, map[string]string{
		"execution_id": f.executionID,
		"state":        "QUERY_STATE_PENDING",
	})
}

func (f *fakeDune) handleStatus(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.statusStatus != 0 {
		http.Error(w, "status unavailable", f.statusStatus)
		return
	}

	resp := map[string]string{"execution_id": mux.Vars(r)["id"]}
	if len(f.states) > 0 {
		idx := f.polls
		if idx >= len(f.states) {
			idx = len(f.states) - 1
		}
		if state := f.states[idx]; state != "" {
			resp["state"] = state
		}
	}
	f.polls++

	writeJSON(w, resp)
}

func (f *fakeDune) handleResults(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.resultsStatus != 0 {
		http.Error(w, "results unavailable", f.resultsStatus)
		return
	}

	rows := f.rows
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	writeJSON(w, map[string]interface{}{
		"execution_id": mux.Vars(r)["id"],
		"state":        "QUERY_STATE_COMPLETED",
		"result": map[string]interface{}{
			"rows": rows,
		},
	})
}

func (f *fakeDune) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

// fakeCMC serves canned CoinMarketCap responses
type fakeCMC struct {
	mu sync.Mutex

	listingsBody   string
	listingsStatus int
	info           map[string]interface{}
	infoStatus     int
	infoBody       string

	listingsQuery url.Values
	infoCalls     int
	apiKeys       []string
}

func (f *fakeCMC) start(t *testing.T) *httptest.Server {
	t.Helper()

	r := mux.NewRouter()
	r.HandleFunc("/v1/cryptocurrency/listings/latest", f.handleListings).Methods(http.MethodGet)
	r.HandleFunc("/v2/cryptocurrency/info", f.handleInfo).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeCMC) handleListings(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listingsQuery = r.URL.Query()
	f.apiKeys = append(f.apiKeys, r.Header.Get("X-CMC_PRO_API_KEY"))

	if f.listingsStatus != 0 {
		w.WriteHeader(f.listingsStatus)
	}
	_, _ = w.Write([]byte(f.listingsBody))
}

func (f *fakeCMC) handleInfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.infoCalls++

	if f.infoStatus != 0 {
		w.WriteHeader(f.infoStatus)
		_, _ = w.Write([]byte(f.infoBody))
		return
	}

	data := map[string]interface{}{}
	id := r.URL.Query().Get("id")
	if entry, ok := f.info[id]; ok {
		data[id] = entry
	}
	writeJSON(w, map[string]interface{}{
		"status": map[string]interface{}{"error_code": 0},
		"data":   data,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// sleepRecorder replaces the poll pause and counts calls
type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
