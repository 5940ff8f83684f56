package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TanveerShahriar/Thesis/internal/controlplane"
)

func withAPI(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	prev := apiAddr
	apiAddr = ts.URL
	t.Cleanup(func() {
		apiAddr = prev
		ts.Close()
	})
}

func TestCheckHealth(t *testing.T) {
	withAPI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(controlplane.HealthResponse{OK: true, DB: "ok", Version: controlplane.Version})
	})

	health, err := CheckHealth()
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.OK || health.Version != controlplane.Version {
		t.Errorf("Unexpected health response: %+v", health)
	}
}

func TestCheckHealth_Unavailable(t *testing.T) {
	withAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(controlplane.HealthResponse{DB: "error: closed"})
	})

	health, err := CheckHealth()
	if err == nil {
		t.Fatal("Expected error for 503")
	}
	if health == nil || health.OK || health.DB != "error: closed" {
		t.Errorf("Expected the parsed payload on failure, got %+v", health)
	}
}

func TestAPIPostError(t *testing.T) {
	withAPI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	})

	if _, err := apiPost("/invoke", map[string]any{"function": "primes_i"}); err == nil {
		t.Error("Expected error for 400 response")
	}
}
