package testutil

import (
	"errors"
	"net/http"
	"testing"
)

func TestAssertStatusCodePasses(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
}

func TestAssertNoErrorPasses(t *testing.T) {
	AssertNoError(t, nil)
}

func TestAssertErrorPasses(t *testing.T) {
	AssertError(t, errors.New("boom"))
}

func TestNewTestRequest(t *testing.T) {
	req := NewTestRequest(http.MethodGet, "/api/runs")
	if req.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if req.URL.Path != "/api/runs" {
		t.Errorf("path = %s, want /api/runs", req.URL.Path)
	}
}

func TestNewTestRecorder(t *testing.T) {
	rec := NewTestRecorder()
	if rec.Code != http.StatusOK {
		t.Errorf("default code = %d, want 200", rec.Code)
	}
}
