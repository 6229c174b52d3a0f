package httputil

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestMockHTTPClientQueuedResponses(t *testing.T) {
	m := NewMockHTTPClient()
	m.AddResponse(http.StatusOK, `{"ok":true}`)
	m.AddResponse(http.StatusBadGateway, "bad")

	req, _ := http.NewRequest(http.MethodPost, "http://backend/api/runs", strings.NewReader("payload"))
	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	req2, _ := http.NewRequest(http.MethodPost, "http://backend/api/runs", nil)
	resp2, err := m.Do(req2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp2.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp2.StatusCode)
	}

	if m.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2", m.RequestCount())
	}
	if m.Bodies[0] != "payload" {
		t.Errorf("recorded body = %q, want %q", m.Bodies[0], "payload")
	}
}

func TestMockHTTPClientErrorResponse(t *testing.T) {
	m := NewMockHTTPClient()
	m.AddErrorResponse(errors.New("connection refused"))

	req, _ := http.NewRequest(http.MethodGet, "http://backend/", nil)
	if _, err := m.Do(req); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestMockHTTPClientDefaultResponse(t *testing.T) {
	m := NewMockHTTPClient()
	req, _ := http.NewRequest(http.MethodGet, "http://backend/", nil)
	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 default", resp.StatusCode)
	}
}

func TestStandardClientNilFallback(t *testing.T) {
	c := NewStandardClient(nil)
	if c.Client != http.DefaultClient {
		t.Error("nil client must fall back to http.DefaultClient")
	}
}
