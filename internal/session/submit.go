package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gaitworks/posture.report/internal/httputil"
	"github.com/gaitworks/posture.report/internal/protocol"
)

// Submitter sends a finished run to the backend scoring service. The backend
// may return an authoritative evaluation; when it fails or omits one the
// local fallback stands. There is no automatic retry.
type Submitter interface {
	Submit(ctx context.Context, record protocol.RunRecord) (runID string, eval *protocol.Evaluation, err error)
}

// submitPayload is the wire format accepted by the backend.
type submitPayload struct {
	Source       string                `json:"source"`
	RunStartedAt string                `json:"run_started_at"`
	RunEndedAt   string                `json:"run_ended_at"`
	Steps        []protocol.StepResult `json:"steps"`
	ClientScore  clientScore           `json:"client_score"`
}

type clientScore struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// submitResponse is the backend's reply.
type submitResponse struct {
	RunID      string               `json:"run_id"`
	Evaluation *protocol.Evaluation `json:"evaluation,omitempty"`
}

// BackendClient submits runs to an HTTP backend.
type BackendClient struct {
	url    string
	source string
	client httputil.HTTPClient
}

// NewBackendClient creates a submitter posting to url. source identifies this
// station in the submission payload.
func NewBackendClient(url, source string, client httputil.HTTPClient) *BackendClient {
	if client == nil {
		client = httputil.NewStandardClient(&http.Client{Timeout: 10 * time.Second})
	}
	return &BackendClient{url: url, source: source, client: client}
}

// Submit posts the run record and decodes the backend response.
func (c *BackendClient) Submit(ctx context.Context, record protocol.RunRecord) (string, *protocol.Evaluation, error) {
	score := protocol.ScoreOf(record)
	payload := submitPayload{
		Source:       c.source,
		RunStartedAt: record.StartedAt.UTC().Format(time.RFC3339),
		RunEndedAt:   record.EndedAt.UTC().Format(time.RFC3339),
		Steps:        record.Steps,
		ClientScore:  clientScore{Completed: score.Completed, Total: score.Total},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal run submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("build run submission: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("run submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", nil, fmt.Errorf("decode submission response: %w", err)
	}
	return sr.RunID, sr.Evaluation, nil
}
