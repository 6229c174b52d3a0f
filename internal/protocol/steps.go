// Package protocol implements the scripted ten-step assessment: the step
// table, the frame-driven step engine, the immutable run record, and the
// score evaluator with its deterministic fallback narrative.
package protocol

import "github.com/gaitworks/posture.report/internal/pose"

// StepKind is the completion semantics of a protocol step.
type StepKind string

const (
	// HoldAny completes after sustaining any qualifying action for the
	// threshold duration in milliseconds.
	HoldAny StepKind = "hold_any"
	// RepSingle completes after the threshold count of rising-edge
	// activations of the qualifying action.
	RepSingle StepKind = "rep_single"
	// RepAlternating completes after the threshold count of rising-edge
	// activations that strictly alternate between the left and right action.
	RepAlternating StepKind = "rep_alternating"
)

// Step is one immutable entry of the assessment protocol.
type Step struct {
	Key         string      `json:"key"`
	Instruction string      `json:"instruction"`
	Kind        StepKind    `json:"kind"`
	// Actions are the qualifying action ids. HoldAny accepts any of them;
	// RepSingle uses the first; RepAlternating uses exactly two, left side
	// first.
	Actions   []pose.Action `json:"actions"`
	Threshold int           `json:"threshold"` // hold ms, or target rep count
}

// NumSteps is the fixed protocol length.
const NumSteps = 10

// Left/right action ids below are intentionally swapped relative to the
// instruction text: the camera is self-facing, so the subject's right hand
// appears on the image's left and the pose model labels it "left". The
// mirroring is part of the protocol contract and must not be corrected.
var protocolSteps = [NumSteps]Step{
	{
		Key:         "raise_right_hand",
		Instruction: "Raise your right hand above your shoulder and hold it",
		Kind:        HoldAny,
		Actions:     []pose.Action{pose.ActionHandRaisedLeft},
		Threshold:   1500,
	},
	{
		Key:         "raise_left_hand",
		Instruction: "Raise your left hand above your shoulder and hold it",
		Kind:        HoldAny,
		Actions:     []pose.Action{pose.ActionHandRaisedRight},
		Threshold:   1500,
	},
	{
		Key:         "raise_both_hands",
		Instruction: "Raise both hands above your shoulders and hold them",
		Kind:        HoldAny,
		Actions:     []pose.Action{pose.ActionBothHandsRaised},
		Threshold:   2000,
	},
	{
		Key:         "lean_right",
		Instruction: "Lean your upper body to the right and hold",
		Kind:        HoldAny,
		Actions:     []pose.Action{pose.ActionLeaningLeft},
		Threshold:   1500,
	},
	{
		Key:         "lean_left",
		Instruction: "Lean your upper body to the left and hold",
		Kind:        HoldAny,
		Actions:     []pose.Action{pose.ActionLeaningRight},
		Threshold:   1500,
	},
	{
		Key:         "raise_right_leg",
		Instruction: "Raise your right leg, three times",
		Kind:        RepSingle,
		Actions:     []pose.Action{pose.ActionLegRaisedLeft},
		Threshold:   3,
	},
	{
		Key:         "raise_left_leg",
		Instruction: "Raise your left leg, three times",
		Kind:        RepSingle,
		Actions:     []pose.Action{pose.ActionLegRaisedRight},
		Threshold:   3,
	},
	{
		Key:         "march_in_place",
		Instruction: "March in place, alternating legs, six lifts",
		Kind:        RepAlternating,
		Actions:     []pose.Action{pose.ActionLegRaisedLeft, pose.ActionLegRaisedRight},
		Threshold:   6,
	},
	{
		Key:         "squat",
		Instruction: "Perform three squats",
		Kind:        RepSingle,
		Actions:     []pose.Action{pose.ActionSquat},
		Threshold:   3,
	},
	{
		Key:         "jumping_jack",
		Instruction: "Perform three jumping jacks",
		Kind:        RepSingle,
		Actions:     []pose.Action{pose.ActionJumpingJack},
		Threshold:   3,
	},
}

// Steps returns the protocol step table in execution order. The returned
// slice is a copy; the table itself is immutable.
func Steps() []Step {
	out := make([]Step, NumSteps)
	copy(out, protocolSteps[:])
	return out
}

// StepAt returns the step at index, or a zero Step and false when out of
// range.
func StepAt(index int) (Step, bool) {
	if index < 0 || index >= NumSteps {
		return Step{}, false
	}
	return protocolSteps[index], true
}
