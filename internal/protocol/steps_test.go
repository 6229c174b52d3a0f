package protocol

import (
	"testing"

	"github.com/gaitworks/posture.report/internal/pose"
)

func TestStepTableShape(t *testing.T) {
	steps := Steps()
	if len(steps) != NumSteps {
		t.Fatalf("steps = %d, want %d", len(steps), NumSteps)
	}

	seen := map[string]bool{}
	for i, s := range steps {
		if s.Key == "" || s.Instruction == "" {
			t.Errorf("step %d has empty key or instruction", i)
		}
		if seen[s.Key] {
			t.Errorf("duplicate step key %q", s.Key)
		}
		seen[s.Key] = true
		if s.Threshold <= 0 {
			t.Errorf("step %s threshold = %d, want > 0", s.Key, s.Threshold)
		}
		for _, a := range s.Actions {
			if !a.Valid() {
				t.Errorf("step %s references unknown action %q", s.Key, a)
			}
		}
		switch s.Kind {
		case HoldAny, RepSingle:
			if len(s.Actions) < 1 {
				t.Errorf("step %s needs at least one action", s.Key)
			}
		case RepAlternating:
			if len(s.Actions) != 2 {
				t.Errorf("step %s needs exactly two actions, has %d", s.Key, len(s.Actions))
			}
		default:
			t.Errorf("step %s has unknown kind %q", s.Key, s.Kind)
		}
	}
}

// The camera is self-facing: instructions naming the subject's right side must
// bind to image-left action ids and vice versa.
func TestStepTableMirrorsSides(t *testing.T) {
	byKey := map[string]Step{}
	for _, s := range Steps() {
		byKey[s.Key] = s
	}

	mirrored := map[string]pose.Action{
		"raise_right_hand": pose.ActionHandRaisedLeft,
		"raise_left_hand":  pose.ActionHandRaisedRight,
		"lean_right":       pose.ActionLeaningLeft,
		"lean_left":        pose.ActionLeaningRight,
		"raise_right_leg":  pose.ActionLegRaisedLeft,
		"raise_left_leg":   pose.ActionLegRaisedRight,
	}
	for key, want := range mirrored {
		step, ok := byKey[key]
		if !ok {
			t.Fatalf("missing step %q", key)
		}
		if step.Actions[0] != want {
			t.Errorf("step %s action = %s, want mirrored %s", key, step.Actions[0], want)
		}
	}
}

func TestStepsReturnsCopy(t *testing.T) {
	steps := Steps()
	steps[0].Key = "mutated"
	if fresh := Steps(); fresh[0].Key == "mutated" {
		t.Error("Steps must return a copy of the table")
	}
}

func TestStepAt(t *testing.T) {
	if _, ok := StepAt(-1); ok {
		t.Error("StepAt(-1) should report out of range")
	}
	if _, ok := StepAt(NumSteps); ok {
		t.Error("StepAt(NumSteps) should report out of range")
	}
	step, ok := StepAt(0)
	if !ok || step.Key != "raise_right_hand" {
		t.Errorf("StepAt(0) = %+v, %v", step, ok)
	}
}
