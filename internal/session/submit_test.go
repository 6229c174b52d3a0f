package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gaitworks/posture.report/internal/httputil"
	"github.com/gaitworks/posture.report/internal/protocol"
)

func submissionRecord() protocol.RunRecord {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	record := protocol.RunRecord{StartedAt: start, EndedAt: start.Add(4 * time.Minute)}
	for i, step := range protocol.Steps() {
		status := protocol.StepCompleted
		if i == 9 {
			status = protocol.StepSkipped
		}
		record.Steps = append(record.Steps, protocol.StepResult{
			Key:    step.Key,
			Kind:   step.Kind,
			Status: status,
			Target: step.Threshold,
		})
	}
	return record
}

func TestBackendClientSubmit(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	client.AddResponse(http.StatusOK, `{
		"run_id": "abc-123",
		"evaluation": {"narrative": "backend narrative", "authoritative": true}
	}`)

	backend := NewBackendClient("http://backend/runs", "station-1", client)
	runID, eval, err := backend.Submit(context.Background(), submissionRecord())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if runID != "abc-123" {
		t.Errorf("run id = %q, want abc-123", runID)
	}
	if eval == nil || eval.Narrative != "backend narrative" {
		t.Errorf("evaluation = %+v, want backend narrative", eval)
	}

	// The payload carries the station id, RFC3339 timestamps and the client
	// tally.
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(client.Bodies[0]), &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	var source string
	json.Unmarshal(payload["source"], &source)
	if source != "station-1" {
		t.Errorf("source = %q, want station-1", source)
	}
	var startedAt string
	json.Unmarshal(payload["run_started_at"], &startedAt)
	if _, err := time.Parse(time.RFC3339, startedAt); err != nil {
		t.Errorf("run_started_at %q is not RFC3339: %v", startedAt, err)
	}
	var score struct {
		Completed int `json:"completed"`
		Total     int `json:"total"`
	}
	json.Unmarshal(payload["client_score"], &score)
	if score.Completed != 9 || score.Total != 10 {
		t.Errorf("client_score = %+v, want 9/10", score)
	}
}

func TestBackendClientSubmitWithoutEvaluation(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	client.AddResponse(http.StatusOK, `{"run_id": "abc-123"}`)

	backend := NewBackendClient("http://backend/runs", "station-1", client)
	runID, eval, err := backend.Submit(context.Background(), submissionRecord())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if runID != "abc-123" || eval != nil {
		t.Errorf("got (%q, %+v), want run id and nil evaluation", runID, eval)
	}
}

func TestBackendClientSubmitErrors(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		client := httputil.NewMockHTTPClient()
		client.AddErrorResponse(errors.New("connection refused"))
		backend := NewBackendClient("http://backend/runs", "station-1", client)
		if _, _, err := backend.Submit(context.Background(), submissionRecord()); err == nil {
			t.Error("expected error on transport failure")
		}
	})
	t.Run("status", func(t *testing.T) {
		client := httputil.NewMockHTTPClient()
		client.AddResponse(http.StatusInternalServerError, "boom")
		backend := NewBackendClient("http://backend/runs", "station-1", client)
		if _, _, err := backend.Submit(context.Background(), submissionRecord()); err == nil {
			t.Error("expected error on 5xx status")
		}
	})
	t.Run("body", func(t *testing.T) {
		client := httputil.NewMockHTTPClient()
		client.AddResponse(http.StatusOK, "not json")
		backend := NewBackendClient("http://backend/runs", "station-1", client)
		if _, _, err := backend.Submit(context.Background(), submissionRecord()); err == nil {
			t.Error("expected error on malformed response")
		}
	})
}
