package protocol

import (
	"testing"
	"time"

	"github.com/gaitworks/posture.report/internal/pose"
	"github.com/gaitworks/posture.report/internal/timeutil"
)

const frame = 50 * time.Millisecond

func newTestEngine(events Events) (*Engine, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	return NewEngine(clock, events), clock
}

// feed advances the engine n frames with the given actions active, moving the
// mock clock in lockstep.
func feed(e *Engine, clock *timeutil.MockClock, n int, actions ...pose.Action) {
	active := make(map[pose.Action]float64, len(actions))
	for _, a := range actions {
		active[a] = 0.9
	}
	for i := 0; i < n; i++ {
		clock.Advance(frame)
		e.Advance(active, frame)
	}
}

func TestEngineIdleUntilStart(t *testing.T) {
	e, clock := newTestEngine(Events{})

	feed(e, clock, 40, pose.ActionHandRaisedLeft)
	if p := e.Progress(); p.Running || p.HoldMs != 0 {
		t.Errorf("engine must ignore frames before Start, got %+v", p)
	}
}

func TestEngineHoldStepCompletes(t *testing.T) {
	var completed []int
	e, clock := newTestEngine(Events{
		OnStepCompleted: func(i int, r StepResult) { completed = append(completed, i) },
	})
	e.Start()

	// 1500ms at 50ms per frame: 29 frames are not enough, the 30th is.
	feed(e, clock, 29, pose.ActionHandRaisedLeft)
	if p := e.Progress(); p.StepIndex != 0 {
		t.Fatalf("step index = %d after 1450ms, want 0", p.StepIndex)
	}
	feed(e, clock, 1, pose.ActionHandRaisedLeft)

	p := e.Progress()
	if p.StepIndex != 1 {
		t.Errorf("step index = %d, want 1", p.StepIndex)
	}
	if !p.CompletedFlags[0] {
		t.Error("step 0 should be flagged completed")
	}
	if len(completed) != 1 || completed[0] != 0 {
		t.Errorf("completion events = %v, want [0]", completed)
	}

	record := e.Record()
	if len(record.Steps) != 1 {
		t.Fatalf("recorded steps = %d, want 1", len(record.Steps))
	}
	if record.Steps[0].Achieved < 1500 {
		t.Errorf("achieved = %d, want >= 1500", record.Steps[0].Achieved)
	}
}

func TestEngineHoldResetsOnGap(t *testing.T) {
	e, clock := newTestEngine(Events{})
	e.Start()

	feed(e, clock, 20, pose.ActionHandRaisedLeft) // 1000ms
	feed(e, clock, 1)                             // gap: accumulator zeroed
	feed(e, clock, 29, pose.ActionHandRaisedLeft) // 1450ms, still short

	if p := e.Progress(); p.StepIndex != 0 {
		t.Errorf("step index = %d, want 0 (hold must restart after a gap)", p.StepIndex)
	}

	feed(e, clock, 1, pose.ActionHandRaisedLeft)
	if p := e.Progress(); p.StepIndex != 1 {
		t.Errorf("step index = %d, want 1", p.StepIndex)
	}
}

func TestEngineHoldIgnoresWrongAction(t *testing.T) {
	e, clock := newTestEngine(Events{})
	e.Start()

	// Step 0 wants hand_raised_left (the subject's right hand on camera).
	feed(e, clock, 40, pose.ActionHandRaisedRight)
	if p := e.Progress(); p.StepIndex != 0 || p.HoldMs != 0 {
		t.Errorf("wrong action accumulated progress: %+v", p)
	}
}

// skipTo resolves steps as skipped until stepIndex reaches target.
func skipTo(e *Engine, target int) {
	for e.Progress().StepIndex < target && !e.Finished() {
		e.SkipCurrent()
	}
}

func TestEngineRepCountsRisingEdgesOnly(t *testing.T) {
	e, clock := newTestEngine(Events{})
	e.Start()
	skipTo(e, 5) // raise_right_leg, 3 reps of leg_raised_left

	// One long activation is one rep, however many frames it spans.
	feed(e, clock, 10, pose.ActionLegRaisedLeft)
	if p := e.Progress(); p.RepCount != 1 {
		t.Fatalf("rep count = %d after one sustained activation, want 1", p.RepCount)
	}

	feed(e, clock, 2)
	feed(e, clock, 3, pose.ActionLegRaisedLeft)
	if p := e.Progress(); p.RepCount != 2 {
		t.Fatalf("rep count = %d, want 2", p.RepCount)
	}

	feed(e, clock, 2)
	feed(e, clock, 3, pose.ActionLegRaisedLeft)
	if p := e.Progress(); p.StepIndex != 6 {
		t.Errorf("step index = %d, want 6 after third rep", p.StepIndex)
	}
}

func TestEngineAlternatingRequiresSideChange(t *testing.T) {
	e, clock := newTestEngine(Events{})
	e.Start()
	skipTo(e, 7) // march_in_place, 6 alternating lifts

	lift := func(a pose.Action) {
		feed(e, clock, 3, a)
		feed(e, clock, 2)
	}

	// l, l, r, l, r, l, r: the duplicate left lift must not count.
	sequence := []pose.Action{
		pose.ActionLegRaisedLeft,
		pose.ActionLegRaisedLeft,
		pose.ActionLegRaisedRight,
		pose.ActionLegRaisedLeft,
		pose.ActionLegRaisedRight,
		pose.ActionLegRaisedLeft,
	}
	for _, a := range sequence {
		lift(a)
	}
	if p := e.Progress(); p.RepCount != 5 {
		t.Fatalf("rep count = %d, want 5 (duplicate side ignored)", p.RepCount)
	}

	lift(pose.ActionLegRaisedRight)
	if p := e.Progress(); p.StepIndex != 8 {
		t.Errorf("step index = %d, want 8 after sixth alternating lift", p.StepIndex)
	}
}

func TestEngineAlternatingFirstSideEither(t *testing.T) {
	e, clock := newTestEngine(Events{})
	e.Start()
	skipTo(e, 7)

	// Starting on the right side is as valid as starting on the left.
	feed(e, clock, 3, pose.ActionLegRaisedRight)
	if p := e.Progress(); p.RepCount != 1 {
		t.Errorf("rep count = %d, want 1", p.RepCount)
	}
}

func TestEngineSkipRecordsSkipped(t *testing.T) {
	var skipped []int
	e, _ := newTestEngine(Events{
		OnStepSkipped: func(i int, r StepResult) { skipped = append(skipped, i) },
	})
	e.Start()

	e.SkipCurrent()
	if len(skipped) != 1 || skipped[0] != 0 {
		t.Errorf("skip events = %v, want [0]", skipped)
	}

	record := e.Record()
	if record.Steps[0].Status != StepSkipped {
		t.Errorf("status = %s, want %s", record.Steps[0].Status, StepSkipped)
	}
	if p := e.Progress(); p.CompletedFlags[0] {
		t.Error("skipped step must not set the completed flag")
	}
}

func TestEngineFinishesAfterAllSteps(t *testing.T) {
	var finished *RunRecord
	e, _ := newTestEngine(Events{
		OnFinished: func(r RunRecord) { finished = &r },
	})
	e.Start()
	skipTo(e, NumSteps)

	if !e.Finished() || e.Running() {
		t.Fatalf("finished = %v running = %v, want true/false", e.Finished(), e.Running())
	}
	if finished == nil {
		t.Fatal("OnFinished not fired")
	}
	if len(finished.Steps) != NumSteps {
		t.Errorf("recorded steps = %d, want %d", len(finished.Steps), NumSteps)
	}
	if finished.EndedAt.Before(finished.StartedAt) {
		t.Error("EndedAt must not precede StartedAt")
	}
}

func TestEngineFinishedIsTerminal(t *testing.T) {
	finishes := 0
	e, clock := newTestEngine(Events{
		OnFinished: func(r RunRecord) { finishes++ },
	})
	e.Start()
	skipTo(e, NumSteps)

	// No further mutation is accepted after finishing.
	e.Start()
	e.SkipCurrent()
	feed(e, clock, 40, pose.ActionHandRaisedLeft)

	if finishes != 1 {
		t.Errorf("finish events = %d, want exactly 1", finishes)
	}
	if len(e.Record().Steps) != NumSteps {
		t.Errorf("record grew after finishing: %d steps", len(e.Record().Steps))
	}
}

func TestEngineInterruptClearsTransientProgress(t *testing.T) {
	e, clock := newTestEngine(Events{})
	e.Start()

	feed(e, clock, 20, pose.ActionHandRaisedLeft) // 1000ms into the hold
	e.InterruptStep()

	p := e.Progress()
	if p.HoldMs != 0 {
		t.Errorf("hold ms = %d after interrupt, want 0", p.HoldMs)
	}
	if p.StepIndex != 0 {
		t.Errorf("step index = %d, want unchanged 0", p.StepIndex)
	}

	// Rep edge state is cleared too: a still-active action re-arms.
	skipTo(e, 5)
	feed(e, clock, 3, pose.ActionLegRaisedLeft)
	e.InterruptStep()
	feed(e, clock, 3, pose.ActionLegRaisedLeft)
	if p := e.Progress(); p.RepCount != 2 {
		t.Errorf("rep count = %d, want 2 (interrupt clears edge memory)", p.RepCount)
	}
}

func TestEngineResetReturnsToIdle(t *testing.T) {
	e, clock := newTestEngine(Events{})
	e.Start()
	feed(e, clock, 10, pose.ActionHandRaisedLeft)
	e.SkipCurrent()

	e.Reset()

	p := e.Progress()
	if p.Running || p.Finished || p.StepIndex != 0 || p.HoldMs != 0 {
		t.Errorf("post-reset progress = %+v, want idle zero state", p)
	}
	if len(e.Record().Steps) != 0 {
		t.Error("reset must clear the run record")
	}

	// A fresh run is possible after reset, even after a finished one.
	e.Start()
	if !e.Running() {
		t.Error("engine should accept Start after Reset")
	}
}

func TestEngineStepDurations(t *testing.T) {
	e, clock := newTestEngine(Events{})
	e.Start()

	feed(e, clock, 30, pose.ActionHandRaisedLeft)
	record := e.Record()
	if len(record.Steps) != 1 {
		t.Fatalf("recorded steps = %d, want 1", len(record.Steps))
	}
	if got := record.Steps[0].DurationMs; got != 1500 {
		t.Errorf("duration = %dms, want 1500", got)
	}
}

func TestEngineFullRun(t *testing.T) {
	e, clock := newTestEngine(Events{})
	e.Start()

	hold := func(frames int, a pose.Action) { feed(e, clock, frames, a) }
	reps := func(n int, a pose.Action) {
		for i := 0; i < n; i++ {
			feed(e, clock, 3, a)
			feed(e, clock, 2)
		}
	}

	hold(30, pose.ActionHandRaisedLeft)  // raise_right_hand
	hold(30, pose.ActionHandRaisedRight) // raise_left_hand
	hold(40, pose.ActionBothHandsRaised) // raise_both_hands
	hold(30, pose.ActionLeaningLeft)     // lean_right
	hold(30, pose.ActionLeaningRight)    // lean_left
	reps(3, pose.ActionLegRaisedLeft)    // raise_right_leg
	reps(3, pose.ActionLegRaisedRight)   // raise_left_leg
	for i := 0; i < 3; i++ {             // march_in_place
		reps(1, pose.ActionLegRaisedLeft)
		reps(1, pose.ActionLegRaisedRight)
	}
	reps(3, pose.ActionSquat)       // squat
	reps(3, pose.ActionJumpingJack) // jumping_jack

	if !e.Finished() {
		t.Fatal("run should be finished")
	}
	record := e.Record()
	if got := record.CompletedCount(); got != NumSteps {
		t.Errorf("completed = %d, want %d", got, NumSteps)
	}
	for i, s := range record.Steps {
		if s.Status != StepCompleted {
			t.Errorf("step %d (%s) status = %s, want completed", i, s.Key, s.Status)
		}
	}
}
