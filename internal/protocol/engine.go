package protocol

import (
	"time"

	"github.com/gaitworks/posture.report/internal/pose"
	"github.com/gaitworks/posture.report/internal/timeutil"
)

// Side identifies which half of an alternating pair was active.
type Side string

const (
	SideNone  Side = ""
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Progress is a read-only snapshot of the engine's per-step state, emitted to
// the OnProgress callback and the session API.
type Progress struct {
	StepIndex      int            `json:"step_index"`
	Step           Step           `json:"step"`
	HoldMs         int64          `json:"hold_ms"`
	RepCount       int            `json:"rep_count"`
	CompletedFlags [NumSteps]bool `json:"completed_flags"`
	Running        bool           `json:"running"`
	Finished       bool           `json:"finished"`
}

// Events are the engine's notification hooks. Nil callbacks are skipped. The
// engine is driven from a single cooperative loop, so callbacks run inline
// and must not call back into the engine.
type Events struct {
	OnStepCompleted func(index int, result StepResult)
	OnStepSkipped   func(index int, result StepResult)
	OnProgress      func(p Progress)
	OnFinished      func(record RunRecord)
}

// Engine is the deterministic, resumable state machine that turns per-frame
// action activations into protocol progress.
//
// It is re-entered once per frame via Advance and mutated between frames by
// the session controls (Start, SkipCurrent, Reset). All methods are no-ops
// once the run has finished, except Reset. The engine holds no locks: the
// caller guarantees single-threaded access (the cooperative frame loop).
type Engine struct {
	clock  timeutil.Clock
	events Events

	// Mutable run state.
	stepIndex       int
	holdMs          int64
	repCount        int
	wasActive       bool
	lastCountedSide Side
	completedFlags  [NumSteps]bool
	running         bool
	finished        bool

	stepStartedAt time.Time
	record        RunRecord
}

// NewEngine creates an idle engine. A nil clock falls back to the real clock.
func NewEngine(clock timeutil.Clock, events Events) *Engine {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Engine{clock: clock, events: events}
}

// Start begins a run: zeroes per-step counters and timestamps the run start.
// No-op when already running or finished; the caller is responsible for the
// precondition that a subject is currently tracked.
func (e *Engine) Start() {
	if e.running || e.finished {
		return
	}
	e.running = true
	e.stepIndex = 0
	e.clearStepCounters()
	e.record = RunRecord{StartedAt: e.clock.Now()}
	e.stepStartedAt = e.record.StartedAt
	e.emitProgress()
}

// Advance feeds one frame of smoothed action activations into the current
// step. dt is the elapsed wall time since the previous frame. A frame with no
// qualifying activity is a stall, never a fault.
func (e *Engine) Advance(active map[pose.Action]float64, dt time.Duration) {
	if !e.running || e.finished {
		return
	}
	step, ok := StepAt(e.stepIndex)
	if !ok {
		return
	}

	switch step.Kind {
	case HoldAny:
		e.advanceHold(step, active, dt)
	case RepSingle:
		e.advanceRepSingle(step, active)
	case RepAlternating:
		e.advanceRepAlternating(step, active)
	}

	if e.running && !e.finished {
		e.emitProgress()
	}
}

// advanceHold accumulates hold time while any qualifying action is active and
// resets to zero on any inactive frame; no partial carry across gaps.
func (e *Engine) advanceHold(step Step, active map[pose.Action]float64, dt time.Duration) {
	holding := false
	for _, a := range step.Actions {
		if _, ok := active[a]; ok {
			holding = true
			break
		}
	}
	if holding {
		e.holdMs += dt.Milliseconds()
	} else {
		e.holdMs = 0
	}
	if e.holdMs >= int64(step.Threshold) {
		e.completeStep(step)
	}
}

// advanceRepSingle counts rising edges only: N consecutive active frames are
// one repetition, not N.
func (e *Engine) advanceRepSingle(step Step, active map[pose.Action]float64) {
	_, isActive := active[step.Actions[0]]
	if isActive && !e.wasActive {
		e.repCount++
	}
	e.wasActive = isActive
	if e.repCount >= step.Threshold {
		e.completeStep(step)
	}
}

// advanceRepAlternating additionally requires the newly active side to differ
// from the last counted side; a same-side edge is ignored and does not update
// the alternation memory.
func (e *Engine) advanceRepAlternating(step Step, active map[pose.Action]float64) {
	side := SideNone
	if _, ok := active[step.Actions[0]]; ok {
		side = SideLeft
	} else if _, ok := active[step.Actions[1]]; ok {
		side = SideRight
	}
	isActive := side != SideNone

	if isActive && !e.wasActive && side != e.lastCountedSide {
		e.repCount++
		e.lastCountedSide = side
	}
	e.wasActive = isActive
	if e.repCount >= step.Threshold {
		e.completeStep(step)
	}
}

// SkipCurrent resolves the current step as skipped on explicit user request
// and advances without marking the completed flag.
func (e *Engine) SkipCurrent() {
	if !e.running || e.finished {
		return
	}
	step, ok := StepAt(e.stepIndex)
	if !ok {
		return
	}
	result := e.appendResult(step, StepSkipped)
	index := e.stepIndex
	e.advanceStep()
	if e.events.OnStepSkipped != nil {
		e.events.OnStepSkipped(index, result)
	}
	e.finishIfDone()
}

// completeStep resolves the current step as completed, marks its flag, and
// advances.
func (e *Engine) completeStep(step Step) {
	result := e.appendResult(step, StepCompleted)
	index := e.stepIndex
	e.completedFlags[index] = true
	e.advanceStep()
	if e.events.OnStepCompleted != nil {
		e.events.OnStepCompleted(index, result)
	}
	e.finishIfDone()
}

// appendResult builds and appends the immutable StepResult for the current
// step.
func (e *Engine) appendResult(step Step, status StepStatus) StepResult {
	achieved := e.repCount
	if step.Kind == HoldAny {
		achieved = int(e.holdMs)
	}
	result := StepResult{
		Key:        step.Key,
		Kind:       step.Kind,
		Status:     status,
		Target:     step.Threshold,
		Achieved:   achieved,
		DurationMs: e.clock.Since(e.stepStartedAt).Milliseconds(),
	}
	e.record.Steps = append(e.record.Steps, result)
	return result
}

// advanceStep moves to the next step and resets per-step counters. stepIndex
// only ever increases outside of Reset.
func (e *Engine) advanceStep() {
	e.stepIndex++
	e.clearStepCounters()
	e.stepStartedAt = e.clock.Now()
}

// finishIfDone transitions to finished once every step is resolved.
func (e *Engine) finishIfDone() {
	if e.stepIndex < NumSteps || e.finished {
		return
	}
	e.finished = true
	e.running = false
	e.record.EndedAt = e.clock.Now()
	if e.events.OnFinished != nil {
		e.events.OnFinished(e.record.Clone())
	}
}

// InterruptStep clears the transient per-step progress (hold accumulation and
// edge-detection state) without touching stepIndex or the completed flags.
// Called when tracking is lost mid-step.
func (e *Engine) InterruptStep() {
	if !e.running || e.finished {
		return
	}
	e.holdMs = 0
	e.wasActive = false
}

// Reset clears all mutable state back to idle. Safe to call at any time,
// including mid-run; it is the only mutation accepted after finishing.
func (e *Engine) Reset() {
	e.stepIndex = 0
	e.clearStepCounters()
	e.completedFlags = [NumSteps]bool{}
	e.running = false
	e.finished = false
	e.record = RunRecord{}
	e.stepStartedAt = time.Time{}
}

func (e *Engine) clearStepCounters() {
	e.holdMs = 0
	e.repCount = 0
	e.wasActive = false
	e.lastCountedSide = SideNone
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool { return e.running }

// Finished reports whether the protocol has been fully resolved.
func (e *Engine) Finished() bool { return e.finished }

// Record returns a copy of the run record accumulated so far.
func (e *Engine) Record() RunRecord { return e.record.Clone() }

// Progress returns a snapshot of the current step state.
func (e *Engine) Progress() Progress {
	step, _ := StepAt(e.stepIndex)
	return Progress{
		StepIndex:      e.stepIndex,
		Step:           step,
		HoldMs:         e.holdMs,
		RepCount:       e.repCount,
		CompletedFlags: e.completedFlags,
		Running:        e.running,
		Finished:       e.finished,
	}
}

func (e *Engine) emitProgress() {
	if e.events.OnProgress != nil {
		e.events.OnProgress(e.Progress())
	}
}
