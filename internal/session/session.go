// Package session runs the cooperative frame loop that ties the pose source,
// person selector, movement classifier and step engine together, and owns
// run finalization: local persistence, backend submission and the fallback
// evaluation.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/gaitworks/posture.report/internal/monitoring"
	"github.com/gaitworks/posture.report/internal/pose"
	"github.com/gaitworks/posture.report/internal/protocol"
	"github.com/gaitworks/posture.report/internal/timeutil"
)

// RunStore persists finished runs locally. Implemented by the db package.
type RunStore interface {
	SaveRun(record protocol.RunRecord, eval protocol.Evaluation, source string) (string, error)
}

// Config holds session loop configuration.
type Config struct {
	FrameInterval time.Duration // Tick period of the frame loop
	Source        string        // Station identifier used in submissions
}

// DefaultConfig returns default session configuration.
func DefaultConfig() Config {
	return Config{
		FrameInterval: 50 * time.Millisecond,
		Source:        "posture-report",
	}
}

// State is a snapshot of the session for the UI/API.
type State struct {
	SelectionMode    pose.SelectionMode   `json:"selection_mode"`
	CandidateCount   int                  `json:"candidate_count"`
	SelectedIndex    int                  `json:"selected_index"`
	TrackingDistance float64              `json:"tracking_distance"`
	Progress         protocol.Progress    `json:"progress"`
	Evaluation       *protocol.Evaluation `json:"evaluation,omitempty"`
	Submitting       bool                 `json:"submitting"`
	LastRunID        string               `json:"last_run_id,omitempty"`
}

// Session drives the per-frame pipeline. Each tick requests a frame from the
// pose source (the only true suspension point), then synchronously runs
// selection, classification and the engine advance; the next tick is only
// scheduled after that completes, so engine state is never mutated
// concurrently. Control methods synchronize with the loop via the session
// mutex and therefore interleave between ticks.
type Session struct {
	config     Config
	clock      timeutil.Clock
	source     pose.Source
	selector   *pose.Selector
	classifier *pose.Classifier
	engine     *protocol.Engine
	store      RunStore
	submitter  Submitter

	mu            sync.Mutex
	lastFrame     pose.CandidateFrame
	lastSelection pose.SelectionResult
	lastAdvance   time.Time
	wasTracking   bool
	stopped       bool

	// Single-flight guard: a duplicate completion trigger cannot send two
	// submissions for one run.
	submitting bool
	evaluation *protocol.Evaluation
	lastRunID  string
}

// New creates a session wired to the given collaborators. store and submitter
// may be nil (no persistence / no backend), which leaves the local fallback
// evaluation as the result.
func New(config Config, clock timeutil.Clock, source pose.Source,
	selector *pose.Selector, classifier *pose.Classifier,
	store RunStore, submitter Submitter) *Session {

	if clock == nil {
		clock = timeutil.RealClock{}
	}
	s := &Session{
		config:     config,
		clock:      clock,
		source:     source,
		selector:   selector,
		classifier: classifier,
		store:      store,
		submitter:  submitter,
	}
	s.lastSelection = pose.SelectionResult{SelectedIndex: -1}
	s.engine = protocol.NewEngine(clock, protocol.Events{
		OnStepCompleted: func(index int, result protocol.StepResult) {
			monitoring.Logf("step %d (%s) completed: achieved=%d target=%d",
				index, result.Key, result.Achieved, result.Target)
		},
		OnStepSkipped: func(index int, result protocol.StepResult) {
			monitoring.Logf("step %d (%s) skipped", index, result.Key)
		},
		OnFinished: s.handleFinished,
	})
	return s
}

// Run executes the frame loop until ctx is cancelled or Stop is called. It
// blocks; run it on its own goroutine.
func (s *Session) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.config.FrameInterval)
	defer ticker.Stop()
	defer s.source.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return nil
			}
			s.Tick(ctx)
		}
	}
}

// Tick performs one frame cycle: detect, select, classify, advance. Exported
// so replay tools and tests can drive the loop manually.
func (s *Session) Tick(ctx context.Context) {
	frame, err := s.source.DetectPose(ctx)
	if err != nil {
		// Perceptual absence is non-fatal: treat as an empty frame.
		frame = pose.CandidateFrame{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastFrame = frame
	selection := s.selector.Process(frame)
	s.lastSelection = selection

	tracking := selection.Mode == pose.ModeTracking && selection.SelectedPerson != nil
	if s.wasTracking && !tracking {
		// Track lost mid-step: wipe transient progress, keep the step index
		// and completed flags.
		s.classifier.Reset()
		s.engine.InterruptStep()
		monitoring.Logf("tracking lost (mode=%s)", selection.Mode)
	}
	s.wasTracking = tracking

	if !tracking {
		s.lastAdvance = time.Time{}
		return
	}

	detections := s.classifier.Classify(selection.SelectedPerson)
	active := make(map[pose.Action]float64, len(detections))
	for _, d := range detections {
		active[d.Action] = d.Confidence
	}

	now := s.clock.Now()
	var dt time.Duration
	if !s.lastAdvance.IsZero() {
		dt = now.Sub(s.lastAdvance)
	} else {
		dt = s.config.FrameInterval
	}
	s.lastAdvance = now

	s.engine.Advance(active, dt)
}

// handleFinished runs inline from the engine's OnFinished callback, under the
// session mutex. It persists the run, computes the local fallback evaluation,
// and fires the single-flight backend submission.
func (s *Session) handleFinished(record protocol.RunRecord) {
	eval := protocol.Evaluate(record)
	s.evaluation = &eval

	if s.store != nil {
		id, err := s.store.SaveRun(record, eval, s.config.Source)
		if err != nil {
			monitoring.Logf("failed to save run locally: %v", err)
		} else {
			s.lastRunID = id
		}
	}

	if s.submitter == nil || s.submitting {
		return
	}
	s.submitting = true

	// Fire and forget: no retry, failure leaves the fallback evaluation.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		runID, backendEval, err := s.submitter.Submit(ctx, record)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.submitting = false
		if err != nil {
			monitoring.Logf("run submission failed, keeping fallback evaluation: %v", err)
			return
		}
		if runID != "" {
			s.lastRunID = runID
		}
		merged := protocol.Merge(eval, backendEval)
		s.evaluation = &merged
		monitoring.Logf("run submitted: id=%s authoritative=%v", runID, backendEval != nil)
	}()
}

// Start begins a run. No-op unless a subject is currently tracked.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSelection.Mode != pose.ModeTracking {
		return false
	}
	s.evaluation = nil
	s.lastRunID = ""
	s.engine.Start()
	return s.engine.Running()
}

// Select picks the candidate at index from the most recent frame as the
// tracked subject.
func (s *Session) Select(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Select(s.lastFrame, index)
}

// SkipCurrent resolves the current step as skipped.
func (s *Session) SkipCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SkipCurrent()
}

// Reset clears the engine, selector and classifier back to their initial
// states.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Reset()
	s.selector.Reset()
	s.classifier.Reset()
	s.evaluation = nil
	s.lastRunID = ""
	s.wasTracking = false
	s.lastAdvance = time.Time{}
}

// Stop ends the session: the loop does not reschedule, the source is released
// by Run's deferred Close, and in-progress unsubmitted state is discarded.
// Only a finished run is durable.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.engine.Reset()
	s.selector.Reset()
	s.classifier.Reset()
}

// State returns a snapshot for the UI/API.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		SelectionMode:    s.selector.Mode(),
		CandidateCount:   len(s.lastFrame.Persons),
		SelectedIndex:    s.lastSelection.SelectedIndex,
		TrackingDistance: s.lastSelection.TrackingDistance,
		Progress:         s.engine.Progress(),
		Evaluation:       s.evaluation,
		Submitting:       s.submitting,
		LastRunID:        s.lastRunID,
	}
}
