package protocol

import "math"

// Level is the qualitative band for a run score.
type Level string

const (
	LevelExcellent      Level = "excellent"
	LevelGood           Level = "good"
	LevelModerate       Level = "moderate"
	LevelPassing        Level = "passing"
	LevelNeedsAttention Level = "needs_attention"
)

// Score is the completed/total tally with its rounded percentage.
type Score struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// StepDetail is the per-step note within an evaluation.
type StepDetail struct {
	Key    string     `json:"key"`
	Status StepStatus `json:"status"`
	Note   string     `json:"note"`
}

// Evaluation is the scored outcome of a run. It is either supplied by the
// backend or synthesized locally as a deterministic fallback; the score and
// the run record are the single source of truth either way, the backend may
// only supersede the narrative.
type Evaluation struct {
	Score     Score        `json:"score"`
	Level     Level        `json:"level"`
	Narrative string       `json:"narrative"`
	Steps     []StepDetail `json:"steps"`
	// Authoritative marks an evaluation as backend-provided rather than the
	// local fallback.
	Authoritative bool `json:"authoritative"`
}

// Band thresholds, boundary-inclusive.
const (
	percentExcellent = 90
	percentGood      = 80
	percentModerate  = 70
	percentPassing   = 60
)

// ScoreOf computes the run score from the record.
func ScoreOf(record RunRecord) Score {
	completed := record.CompletedCount()
	return Score{
		Completed: completed,
		Total:     NumSteps,
		Percent:   int(math.Round(float64(completed) / float64(NumSteps) * 100)),
	}
}

// LevelFor maps a percentage to its qualitative band.
func LevelFor(percent int) Level {
	switch {
	case percent >= percentExcellent:
		return LevelExcellent
	case percent >= percentGood:
		return LevelGood
	case percent >= percentModerate:
		return LevelModerate
	case percent >= percentPassing:
		return LevelPassing
	default:
		return LevelNeedsAttention
	}
}

// fallbackNarratives are the banded generic narratives used when no backend
// evaluation is available. No free text is generated locally.
var fallbackNarratives = map[Level]string{
	LevelExcellent:      "Excellent mobility across the full protocol. All or nearly all movements were performed as instructed.",
	LevelGood:           "Good overall mobility. Most movements were performed as instructed, with minor gaps.",
	LevelModerate:       "Moderate mobility. Several movements were completed; a few were skipped or not finished.",
	LevelPassing:        "Basic mobility demonstrated. A number of movements were skipped; consider redoing the assessment.",
	LevelNeedsAttention: "The assessment was largely incomplete. Consider redoing it in better conditions or with assistance.",
}

// stepNotes are the per-step fallback notes, derived purely from the status.
var stepNotes = map[StepStatus]string{
	StepCompleted: "performed",
	StepSkipped:   "skipped, may redo",
}

// Evaluate synthesizes the deterministic local fallback evaluation from a run
// record.
func Evaluate(record RunRecord) Evaluation {
	score := ScoreOf(record)
	level := LevelFor(score.Percent)

	details := make([]StepDetail, 0, len(record.Steps))
	for _, s := range record.Steps {
		details = append(details, StepDetail{
			Key:    s.Key,
			Status: s.Status,
			Note:   stepNotes[s.Status],
		})
	}

	return Evaluation{
		Score:     score,
		Level:     level,
		Narrative: fallbackNarratives[level],
		Steps:     details,
	}
}

// Merge overlays a backend evaluation onto the local fallback. The narrative
// and per-step notes come from the backend when present; the score and level
// always derive from the local record.
func Merge(local Evaluation, backend *Evaluation) Evaluation {
	if backend == nil {
		return local
	}
	merged := local
	merged.Authoritative = true
	if backend.Narrative != "" {
		merged.Narrative = backend.Narrative
	}
	if len(backend.Steps) == len(local.Steps) {
		merged.Steps = backend.Steps
	}
	return merged
}
