package protocol

import "time"

// StepStatus is the resolution of a single protocol step.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepSkipped   StepStatus = "skipped"
)

// StepResult records how one step was resolved. Results are appended once
// per step and never mutated afterwards.
type StepResult struct {
	Key        string     `json:"key"`
	Kind       StepKind   `json:"kind"`
	Status     StepStatus `json:"status"`
	Target     int        `json:"target"`
	Achieved   int        `json:"achieved"`
	DurationMs int64      `json:"duration_ms"`
}

// RunRecord is the ordered, append-only log of one protocol pass, bounded by
// the ten steps, paired with the run timestamps.
type RunRecord struct {
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Steps     []StepResult `json:"steps"`
}

// CompletedCount returns the number of steps resolved as completed.
func (r *RunRecord) CompletedCount() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StepCompleted {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the record so callers cannot mutate the
// engine's log.
func (r *RunRecord) Clone() RunRecord {
	out := RunRecord{StartedAt: r.StartedAt, EndedAt: r.EndedAt}
	if len(r.Steps) > 0 {
		out.Steps = make([]StepResult, len(r.Steps))
		copy(out.Steps, r.Steps)
	}
	return out
}
