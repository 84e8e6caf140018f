package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skycastd/skycast/internal/model"
)

// ---------------------------------------------------------------------------
// Response envelope tests
// ---------------------------------------------------------------------------

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusNotFound, "Device not found")

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp model.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Error("expected success false")
	}
	if resp.Error != "Device not found" {
		t.Errorf("error = %q", resp.Error)
	}
	// Plain errors never carry the authentication hint.
	if strings.Contains(rr.Body.String(), "hint") {
		t.Errorf("unexpected hint field in body: %s", rr.Body.String())
	}
}

func TestWriteMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	writeMessage(rr, "Device deleted successfully")

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp model.MessageResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Error("expected success true")
	}
	if resp.Message != "Device deleted successfully" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestWriteNotOwner(t *testing.T) {
	rr := httptest.NewRecorder()
	writeNotOwner(rr)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
	var resp model.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "Unauthorized - you don't own this device" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestReadJSONClosesBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"name":"Kitchen"}`))

	var payload struct {
		Name string `json:"name"`
	}
	if err := readJSON(req, &payload); err != nil {
		t.Fatalf("readJSON: %v", err)
	}
	if payload.Name != "Kitchen" {
		t.Errorf("name = %q, want %q", payload.Name, "Kitchen")
	}

	if err := readJSON(httptest.NewRequest("POST", "/test", strings.NewReader("not-json")), &payload); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
