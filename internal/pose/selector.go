package pose

// SelectionMode represents the lifecycle state of subject selection.
type SelectionMode string

const (
	ModeNoDetection SelectionMode = "no-detection" // No candidates visible yet
	ModeSelecting   SelectionMode = "selecting"    // Candidates visible, awaiting selection
	ModeTracking    SelectionMode = "tracking"     // A subject is selected and tracked
)

// SelectorConfig holds configuration parameters for the person selector.
type SelectorConfig struct {
	// MaxTrackingDistance is the normalized centroid distance above which the
	// frame-to-frame match is rejected and the track is considered lost.
	MaxTrackingDistance float64
}

// DefaultSelectorConfig returns default selector configuration.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		MaxTrackingDistance: 0.25,
	}
}

// SelectionResult is the per-frame output of the selector, consumed by the
// overlay renderer and the session loop.
type SelectionResult struct {
	Mode             SelectionMode `json:"mode"`
	Persons          []Person      `json:"-"`
	SelectedIndex    int           `json:"selected_index"` // -1 when nothing is selected
	SelectedPerson   *Person       `json:"-"`
	TrackingDistance float64       `json:"tracking_distance"`
}

// Selector resolves each candidate frame to zero or one tracked subject.
//
// Tracking is maintained by nearest-centroid matching against the reference
// centroid recorded at selection time; the reference drifts with the matched
// candidate so slow subject movement does not break the track. At most one
// person is tracked at a time.
type Selector struct {
	config SelectorConfig

	mode         SelectionMode
	refCentroid  Point2D
	hasReference bool
}

// NewSelector creates a selector in the no-detection state.
func NewSelector(config SelectorConfig) *Selector {
	return &Selector{
		config: config,
		mode:   ModeNoDetection,
	}
}

// Mode returns the current selection mode.
func (s *Selector) Mode() SelectionMode {
	return s.mode
}

// Select marks the candidate at index in the given frame as the tracked
// subject and records its centroid as the tracking reference. It is the
// user-interaction entry point; out-of-range indices are ignored and the mode
// is unchanged.
func (s *Selector) Select(frame CandidateFrame, index int) bool {
	if index < 0 || index >= len(frame.Persons) {
		return false
	}
	s.refCentroid = frame.Persons[index].Centroid()
	s.hasReference = true
	s.mode = ModeTracking
	return true
}

// Process advances the selector by one frame and returns the resolved
// selection. It has no side effects beyond the selector's own mode and
// reference centroid.
func (s *Selector) Process(frame CandidateFrame) SelectionResult {
	result := SelectionResult{
		Mode:          s.mode,
		Persons:       frame.Persons,
		SelectedIndex: -1,
	}

	switch s.mode {
	case ModeNoDetection:
		if !frame.Empty() {
			s.mode = ModeSelecting
			result.Mode = ModeSelecting
		}

	case ModeSelecting:
		if frame.Empty() {
			s.mode = ModeNoDetection
			result.Mode = ModeNoDetection
		}

	case ModeTracking:
		idx, dist := s.nearestCandidate(frame)
		if idx < 0 || dist > s.config.MaxTrackingDistance {
			// Track lost: no candidate, or the best match jumped too far.
			s.dropTrack(frame, &result)
			return result
		}
		s.refCentroid = frame.Persons[idx].Centroid()
		result.SelectedIndex = idx
		result.SelectedPerson = &frame.Persons[idx]
		result.TrackingDistance = dist
	}

	return result
}

// nearestCandidate returns the index of the candidate whose centroid is
// closest to the reference, and the distance. Returns -1 when the frame is
// empty or no reference exists.
func (s *Selector) nearestCandidate(frame CandidateFrame) (int, float64) {
	if frame.Empty() || !s.hasReference {
		return -1, 0
	}
	best := -1
	bestDist := 0.0
	for i := range frame.Persons {
		d := frame.Persons[i].Centroid().Distance(s.refCentroid)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}

// dropTrack clears the reference and reverts to selecting (or no-detection
// when the frame is empty).
func (s *Selector) dropTrack(frame CandidateFrame, result *SelectionResult) {
	s.hasReference = false
	s.refCentroid = Point2D{}
	if frame.Empty() {
		s.mode = ModeNoDetection
	} else {
		s.mode = ModeSelecting
	}
	result.Mode = s.mode
}

// Reset returns the selector to the no-detection state.
func (s *Selector) Reset() {
	s.mode = ModeNoDetection
	s.hasReference = false
	s.refCentroid = Point2D{}
}
