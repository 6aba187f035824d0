package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// YenteEntity is one result item served by FakeYente.
type YenteEntity struct {
	ID         string
	Caption    string
	Score      float64
	Match      bool
	Names      []string
	Aliases    []string
	Countries  []string
	BirthDates []string
	Programs   []string
	SourceURLs []string
}

func (e YenteEntity) body() map[string]any {
	props := map[string][]string{}
	set := func(key string, values []string) {
		if len(values) > 0 {
			props[key] = values
		}
	}
	set("name", e.Names)
	set("alias", e.Aliases)
	set("country", e.Countries)
	set("birthDate", e.BirthDates)
	set("program", e.Programs)
	set("sourceUrl", e.SourceURLs)
	return map[string]any{
		"id":         e.ID,
		"caption":    e.Caption,
		"schema":     "Person",
		"score":      e.Score,
		"match":      e.Match,
		"properties": props,
	}
}

// FakeYente is an httptest server implementing the matcher endpoints the
// gateway calls: POST /match/{dataset} and GET /readyz.
type FakeYente struct {
	Server *httptest.Server

	mu          sync.Mutex
	results     map[string][]YenteEntity
	raw         map[string]string
	failures    map[string][]int
	readyStatus int
	delay       time.Duration
	calls       map[string]int
	readyCalls  int
	lastProps   map[string]map[string][]string
}

// NewFakeYente starts a fake matcher. It is closed on test cleanup.
func NewFakeYente(t *testing.T) *FakeYente {
	t.Helper()
	f := &FakeYente{
		results:     map[string][]YenteEntity{},
		raw:         map[string]string{},
		failures:    map[string][]int{},
		readyStatus: http.StatusOK,
		calls:       map[string]int{},
		lastProps:   map[string]map[string][]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /readyz", f.handleReady)
	mux.HandleFunc("POST /match/{dataset}", f.handleMatch)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL to configure the matcher client with.
func (f *FakeYente) URL() string {
	return f.Server.URL
}

// SetResults replaces the results served for dataset.
func (f *FakeYente) SetResults(dataset string, entities ...YenteEntity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[dataset] = entities
	delete(f.raw, dataset)
}

// SetRawResponse serves body verbatim with status 200 for dataset.
func (f *FakeYente) SetRawResponse(dataset, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw[dataset] = body
}

// FailNext makes the next len(statuses) queries of dataset answer with the
// given statuses, in order.
func (f *FakeYente) FailNext(dataset string, statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[dataset] = append(f.failures[dataset], statuses...)
}

// SetReady sets the /readyz status.
func (f *FakeYente) SetReady(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyStatus = status
}

// SetDelay delays every match response.
func (f *FakeYente) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Calls returns how many match queries dataset received.
func (f *FakeYente) Calls(dataset string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[dataset]
}

// ReadyCalls returns how many readiness checks were received.
func (f *FakeYente) ReadyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readyCalls
}

// LastProperties returns the properties of the last query for dataset.
func (f *FakeYente) LastProperties(dataset string) map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastProps[dataset]
}

func (f *FakeYente) handleReady(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.readyCalls++
	status := f.readyStatus
	f.mu.Unlock()
	w.WriteHeader(status)
}

func (f *FakeYente) handleMatch(w http.ResponseWriter, r *http.Request) {
	dataset := r.PathValue("dataset")

	var req struct {
		Queries map[string]struct {
			Schema     string              `json:"schema"`
			Properties map[string][]string `json:"properties"`
		} `json:"queries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"detail":"invalid query"}`, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls[dataset]++
	f.lastProps[dataset] = req.Queries["q1"].Properties
	delay := f.delay
	var status int
	if queued := f.failures[dataset]; len(queued) > 0 {
		status = queued[0]
		f.failures[dataset] = queued[1:]
	}
	raw, hasRaw := f.raw[dataset]
	entities := f.results[dataset]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"detail":"fake failure"}`))
		return
	}
	if hasRaw {
		_, _ = strings.NewReader(raw).WriteTo(w)
		return
	}

	results := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		results = append(results, e.body())
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"responses": map[string]any{
			"q1": map[string]any{"status": 200, "results": results, "total": map[string]any{"value": len(results)}},
		},
	})
}
