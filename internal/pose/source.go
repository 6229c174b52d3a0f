package pose

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gaitworks/posture.report/internal/httputil"
)

// Source produces one candidate frame per tick from an external pose model.
// An error or a not-detected response is treated by callers as an empty
// frame, never as a fault.
type Source interface {
	// DetectPose requests inference for the current camera frame.
	DetectPose(ctx context.Context) (CandidateFrame, error)

	// Close releases any resources held by the source.
	Close() error
}

// detectResponse is the wire format of the pose model server.
type detectResponse struct {
	Detected bool         `json:"detected"`
	Poses    []detectPose `json:"poses"`
}

type detectPose struct {
	Score     float64    `json:"score"`
	Keypoints []Keypoint `json:"keypoints"`
}

// HTTPSource calls a pose model server over HTTP. The server owns the camera
// and runs inference; this client only fetches the landmark result.
type HTTPSource struct {
	url    string
	client httputil.HTTPClient
}

// NewHTTPSource creates a source that POSTs detection requests to url.
func NewHTTPSource(url string, client httputil.HTTPClient) *HTTPSource {
	if client == nil {
		client = httputil.NewStandardClient(&http.Client{Timeout: 2 * time.Second})
	}
	return &HTTPSource{url: url, client: client}
}

// DetectPose requests one inference pass and converts the response into a
// candidate frame.
func (s *HTTPSource) DetectPose(ctx context.Context) (CandidateFrame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader([]byte(`{}`)))
	if err != nil {
		return CandidateFrame{}, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return CandidateFrame{}, fmt.Errorf("pose model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CandidateFrame{}, fmt.Errorf("pose model returned status %d", resp.StatusCode)
	}

	var dr detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return CandidateFrame{}, fmt.Errorf("decode pose model response: %w", err)
	}

	return frameFromResponse(dr, time.Now().UnixNano()), nil
}

// Close is a no-op for the HTTP source.
func (s *HTTPSource) Close() error { return nil }

func frameFromResponse(dr detectResponse, nowNanos int64) CandidateFrame {
	frame := CandidateFrame{UnixNanos: nowNanos}
	if !dr.Detected {
		return frame
	}
	for _, p := range dr.Poses {
		var person Person
		person.Score = p.Score
		for i, kp := range p.Keypoints {
			if i >= NumKeypoints {
				break
			}
			if kp.Part == "" {
				kp.Part = PartName(i)
			}
			person.Keypoints[i] = kp
		}
		frame.Persons = append(frame.Persons, person)
	}
	return frame
}

// FixtureSource replays a recorded landmark log, one JSON line per frame.
// Used in dev mode and tests so the full pipeline runs without a camera or a
// model server. Lines that fail to parse are treated as empty frames.
type FixtureSource struct {
	mu     sync.Mutex
	frames []CandidateFrame
	next   int
	loop   bool
}

// NewFixtureSource parses newline-delimited JSON frames from data. When loop
// is true the source wraps around at the end instead of returning empty
// frames forever.
func NewFixtureSource(data []byte, loop bool) *FixtureSource {
	src := &FixtureSource{loop: loop}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var dr detectResponse
		if err := json.Unmarshal(line, &dr); err != nil {
			src.frames = append(src.frames, CandidateFrame{})
			continue
		}
		src.frames = append(src.frames, frameFromResponse(dr, 0))
	}
	return src
}

// DetectPose returns the next recorded frame.
func (s *FixtureSource) DetectPose(ctx context.Context) (CandidateFrame, error) {
	if err := ctx.Err(); err != nil {
		return CandidateFrame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return CandidateFrame{UnixNanos: time.Now().UnixNano()}, nil
	}
	if s.next >= len(s.frames) {
		if !s.loop {
			return CandidateFrame{UnixNanos: time.Now().UnixNano()}, nil
		}
		s.next = 0
	}
	frame := s.frames[s.next]
	s.next++
	frame.UnixNanos = time.Now().UnixNano()
	return frame, nil
}

// Close is a no-op for the fixture source.
func (s *FixtureSource) Close() error { return nil }

// FrameCount returns the number of recorded frames.
func (s *FixtureSource) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}
