package controlplane

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/TanveerShahriar/Thesis/internal/audit"
	"github.com/TanveerShahriar/Thesis/internal/builtin"
	"github.com/TanveerShahriar/Thesis/internal/models"
	"github.com/TanveerShahriar/Thesis/internal/scheduler"
	"github.com/TanveerShahriar/Thesis/internal/store"
)

func TestHealthEndpoint_OK(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !health.OK {
		t.Error("Expected health.OK to be true")
	}
	if health.DB != "ok" {
		t.Errorf("Expected DB status 'ok', got '%s'", health.DB)
	}
	if health.Version == "" {
		t.Error("Expected version to be set")
	}
	if health.Time == "" {
		t.Error("Expected time to be set")
	}
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint_DBError(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	// Close the store to simulate DB error
	s.store.Close()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if health.OK {
		t.Error("Expected health.OK to be false when DB is down")
	}
	if health.DB == "ok" {
		t.Error("Expected DB status to indicate error")
	}
}

func TestFunctionsEndpoint(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	if _, err := s.store.UpsertFunction(&models.FunctionInfo{Name: "funcA", Signature: "funcA"}); err != nil {
		t.Fatalf("UpsertFunction failed: %v", err)
	}

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/functions")
	if err != nil {
		t.Fatalf("GET /functions failed: %v", err)
	}
	defer resp.Body.Close()

	var fns []FunctionView
	if err := json.NewDecoder(resp.Body).Decode(&fns); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(fns) != len(builtin.Infos())+1 {
		t.Fatalf("Expected %d functions, got %d", len(builtin.Infos())+1, len(fns))
	}
	for _, fn := range fns {
		if fn.Signature == "funcA" {
			if fn.Dispatchable || fn.FunctionID != -1 {
				t.Errorf("funcA should not be dispatchable: %+v", fn)
			}
		} else if !fn.Dispatchable {
			t.Errorf("%s should be dispatchable", fn.Signature)
		}
	}
}

func TestInvokePollRelease(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/invoke", `{"function":"sum_ii","args":[2,3]}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", resp.StatusCode)
	}
	var inv InvokeResult
	if err := json.NewDecoder(resp.Body).Decode(&inv); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	resp.Body.Close()
	if inv.Weight != 1 || inv.Fallback {
		t.Errorf("Unexpected invoke result: %+v", inv)
	}

	slotURL := fmt.Sprintf("%s/slots/sum_ii/%d", ts.URL, inv.Slot)
	var res SlotResult
	deadline := time.Now().Add(5 * time.Second)
	for !res.Done {
		if time.Now().After(deadline) {
			t.Fatal("Timeout waiting for result")
		}
		r, err := http.Get(slotURL)
		if err != nil {
			t.Fatalf("GET slot failed: %v", err)
		}
		if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
			t.Fatalf("Failed to decode slot: %v", err)
		}
		r.Body.Close()
		time.Sleep(time.Millisecond)
	}
	if res.Result != float64(5) {
		t.Errorf("Expected result 5, got %v", res.Result)
	}

	resp = postJSON(t, slotURL+"/release", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 on release, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, slotURL+"/release", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 on second release, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	entries, err := s.store.ListPDR(audit.ActionInvoke, 0)
	if err != nil {
		t.Fatalf("ListPDR failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Outcome != "accepted" {
		t.Errorf("Expected one accepted invoke record, got %+v", entries)
	}
}

func TestInvokeErrors(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"unknown function", `{"function":"nope_i","args":[1]}`, http.StatusNotFound},
		{"wrong arity", `{"function":"sum_ii","args":[1]}`, http.StatusBadRequest},
		{"missing function", `{"args":[1]}`, http.StatusBadRequest},
		{"invalid json", `{`, http.StatusBadRequest},
		{"oversized sieve", `{"function":"primes_i","args":[4611686018427387904]}`, http.StatusBadRequest},
		{"oversized fanout", `{"function":"fanout_ii","args":[1e30,1]}`, http.StatusBadRequest},
		{"non-numeric argument", `{"function":"fib_i","args":["ten"]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/invoke", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}

	if got := s.service.Workers().Admitted; got != 0 {
		t.Errorf("Expected rejected invocations not to be admitted, got %d", got)
	}

	resp, err := http.Get(ts.URL + "/invoke")
	if err != nil {
		t.Fatalf("GET /invoke failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", resp.StatusCode)
	}
}

func TestSlotErrors(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	tests := []struct {
		path   string
		status int
	}{
		{"/slots/sum_ii/99", http.StatusNotFound},
		{"/slots/nope/0", http.StatusNotFound},
		{"/slots/sum_ii/abc", http.StatusBadRequest},
		{"/slots/sum_ii", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := http.Get(ts.URL + tt.path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Errorf("GET %s: expected status %d, got %d", tt.path, tt.status, resp.StatusCode)
		}
	}
}

func TestWorkersEndpoint(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/workers", nil)
	w := httptest.NewRecorder()
	s.handleWorkers(w, req)

	var stats models.PoolStats
	if err := json.NewDecoder(w.Result().Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.PoolSize != 2 || len(stats.Workers) != 2 {
		t.Errorf("Expected 2 workers, got %+v", stats)
	}
}

func TestInvokeAfterShutdown(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	if err := s.service.pool.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/invoke", bytes.NewBufferString(`{"function":"fib_i","args":[5]}`))
	w := httptest.NewRecorder()
	s.handleInvoke(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func newTestServer(t *testing.T) (*Server, func()) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	st, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	for _, info := range builtin.Infos() {
		info := info
		if _, err := st.UpsertFunction(&info); err != nil {
			t.Fatalf("UpsertFunction failed: %v", err)
		}
	}

	table := scheduler.NewTable()
	if err := builtin.Register(table); err != nil {
		t.Fatalf("Register builtins: %v", err)
	}
	cfg := scheduler.DefaultConfig()
	cfg.PoolSize = 2
	pool, err := scheduler.New(cfg, table)
	if err != nil {
		t.Fatalf("Failed to create pool: %v", err)
	}
	if err := pool.Initialize(); err != nil {
		t.Fatalf("Failed to start pool: %v", err)
	}

	pdr := audit.NewPDRWriter(st)
	service := NewService(st, pdr, pool)
	server := NewServer(service, st, "127.0.0.1:0")

	cleanup := func() {
		pool.Shutdown()
		st.Close()
	}

	return server, cleanup
}
