package protocol

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRunRecordClone(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	original := RunRecord{
		StartedAt: start,
		EndedAt:   start.Add(3 * time.Minute),
		Steps: []StepResult{
			{Key: "raise_right_hand", Kind: HoldAny, Status: StepCompleted, Target: 1500, Achieved: 1550},
			{Key: "raise_left_hand", Kind: HoldAny, Status: StepSkipped, Target: 1500},
		},
	}

	clone := original.Clone()
	if diff := cmp.Diff(original, clone); diff != "" {
		t.Errorf("clone differs from original (-want +got):\n%s", diff)
	}

	// Mutating the clone must not reach back into the original log.
	clone.Steps[0].Status = StepSkipped
	if original.Steps[0].Status != StepCompleted {
		t.Error("clone shares backing storage with the original")
	}
}

func TestRunRecordCloneEmpty(t *testing.T) {
	var r RunRecord
	clone := r.Clone()
	if clone.Steps != nil {
		t.Errorf("empty clone steps = %v, want nil", clone.Steps)
	}
}

func TestCompletedCount(t *testing.T) {
	record := RunRecord{Steps: []StepResult{
		{Status: StepCompleted},
		{Status: StepSkipped},
		{Status: StepCompleted},
	}}
	if got := record.CompletedCount(); got != 2 {
		t.Errorf("completed count = %d, want 2", got)
	}
}
