package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tokenledger.mini/tlm/internal/types"
)

func TestHandleHealth(t *testing.T) {
	svc, _, _ := setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	svc.HandleHealth(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status OK, got %v", resp.Status)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", body["status"])
	}
}

func TestHandleVersion(t *testing.T) {
	svc, _, adminKey := setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	w := httptest.NewRecorder()

	svc.HandleVersion(w, req)

	var body map[string]string
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["version"] != types.Version {
		t.Errorf("Expected version %s, got %s", types.Version, body["version"])
	}
	if body["admin"] != string(adminKey.addr) {
		t.Errorf("Expected admin %s, got %s", adminKey.addr, body["admin"])
	}
}

func TestHandleLogs(t *testing.T) {
	svc, _, _ := setupTest(t)
	svc.logger.Info("first")
	svc.logger.Warning("second")

	req := httptest.NewRequest(http.MethodGet, "/api/logs?n=1", nil)
	w := httptest.NewRecorder()
	svc.HandleLogs(w, req)

	var msgs []map[string]interface{}
	if err := json.NewDecoder(w.Result().Body).Decode(&msgs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if msgs[0]["text"] != "second" {
		t.Errorf("Expected newest message first, got %v", msgs[0]["text"])
	}
}
