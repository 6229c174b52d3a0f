package pose

// Action is one member of the closed movement vocabulary recognized by the
// classifier. Left/right names refer to the subject's body side as reported
// by the pose model, which for a self-facing camera is mirrored relative to
// the on-screen view; the protocol step table accounts for that mirroring.
type Action string

const (
	ActionHandRaisedLeft  Action = "hand_raised_left"
	ActionHandRaisedRight Action = "hand_raised_right"
	ActionBothHandsRaised Action = "both_hands_raised"
	ActionLegRaisedLeft   Action = "leg_raised_left"
	ActionLegRaisedRight  Action = "leg_raised_right"
	ActionLeaningLeft     Action = "leaning_left"
	ActionLeaningRight    Action = "leaning_right"
	ActionSquat           Action = "squat"
	ActionJumpingJack     Action = "jumping_jack"
)

// AllActions lists every action in the vocabulary, in classifier evaluation
// order.
var AllActions = []Action{
	ActionHandRaisedLeft,
	ActionHandRaisedRight,
	ActionBothHandsRaised,
	ActionLegRaisedLeft,
	ActionLegRaisedRight,
	ActionLeaningLeft,
	ActionLeaningRight,
	ActionSquat,
	ActionJumpingJack,
}

// Valid reports whether a is a member of the vocabulary.
func (a Action) Valid() bool {
	for _, known := range AllActions {
		if a == known {
			return true
		}
	}
	return false
}

// Detection is a single active action with its instantaneous confidence.
type Detection struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
}
