package pose

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ClassifierConfig holds configuration parameters for movement recognition.
type ClassifierConfig struct {
	MinKeypointScore float64 // Minimum landmark score for a predicate input
	SmoothingWindow  int     // Sliding window length N (frames)
	SmoothingMinHits int     // Raw activations required within the window (K of N)
	HandRaiseMargin  float64 // Wrist above shoulder by at least this (normalized)
	LegRaiseMargin   float64 // Ankle above opposite ankle by at least this
	LeanMargin       float64 // Shoulder-mid horizontal offset from hip-mid
	SquatDepthMargin float64 // Hip-to-knee vertical gap below this means squatting
	JackSpreadFactor float64 // Ankle spread vs shoulder width for jumping jacks
}

// DefaultClassifierConfig returns default classifier configuration.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		MinKeypointScore: 0.3,
		SmoothingWindow:  5,
		SmoothingMinHits: 3,
		HandRaiseMargin:  0.05,
		LegRaiseMargin:   0.08,
		LeanMargin:       0.06,
		SquatDepthMargin: 0.12,
		JackSpreadFactor: 1.5,
	}
}

// actionWindow is the per-action smoothing state: a ring buffer of raw
// activations and their confidences over the last N frames.
type actionWindow struct {
	raw  []bool
	conf []float64
	next int
	size int
}

func newActionWindow(n int) *actionWindow {
	return &actionWindow{
		raw:  make([]bool, n),
		conf: make([]float64, n),
	}
}

// push records one raw observation, evicting the oldest once full.
func (w *actionWindow) push(active bool, conf float64) {
	w.raw[w.next] = active
	w.conf[w.next] = conf
	w.next = (w.next + 1) % len(w.raw)
	if w.size < len(w.raw) {
		w.size++
	}
}

// hits returns the number of raw activations currently in the window.
func (w *actionWindow) hits() int {
	n := 0
	for i := 0; i < w.size; i++ {
		if w.raw[i] {
			n++
		}
	}
	return n
}

// meanConfidence returns the mean confidence across active frames in the
// window, or 0 when none are active.
func (w *actionWindow) meanConfidence() float64 {
	active := make([]float64, 0, w.size)
	for i := 0; i < w.size; i++ {
		if w.raw[i] {
			active = append(active, w.conf[i])
		}
	}
	if len(active) == 0 {
		return 0
	}
	return stat.Mean(active, nil)
}

func (w *actionWindow) reset() {
	for i := range w.raw {
		w.raw[i] = false
		w.conf[i] = 0
	}
	w.next = 0
	w.size = 0
}

// Classifier recognizes discrete movement actions from a person's landmarks.
//
// Each action is a geometric predicate over normalized keypoint coordinates;
// raw per-frame results pass through a K-of-N sliding window so single-frame
// detector jitter does not flip activations. Compound actions suppress their
// constituents: jumping_jack wins over both_hands_raised, which wins over the
// single-hand actions.
type Classifier struct {
	config  ClassifierConfig
	windows map[Action]*actionWindow
}

// NewClassifier creates a classifier with empty smoothing windows.
func NewClassifier(config ClassifierConfig) *Classifier {
	if config.SmoothingWindow < 1 {
		config.SmoothingWindow = 1
	}
	if config.SmoothingMinHits < 1 {
		config.SmoothingMinHits = 1
	}
	if config.SmoothingMinHits > config.SmoothingWindow {
		config.SmoothingMinHits = config.SmoothingWindow
	}
	c := &Classifier{
		config:  config,
		windows: make(map[Action]*actionWindow, len(AllActions)),
	}
	for _, a := range AllActions {
		c.windows[a] = newActionWindow(config.SmoothingWindow)
	}
	return c
}

// Classify evaluates all predicates for one frame, updates the smoothing
// windows, and returns the set of actions whose smoothed state is active.
// Multiple actions may be active at once.
func (c *Classifier) Classify(person *Person) []Detection {
	raw := c.rawDetections(person)

	for _, a := range AllActions {
		r := raw[a]
		c.windows[a].push(r.active, r.conf)
	}

	active := make(map[Action]bool, len(AllActions))
	for _, a := range AllActions {
		w := c.windows[a]
		active[a] = w.hits() >= c.config.SmoothingMinHits
	}

	// Compound precedence: a compound action that is geometrically true
	// implies its constituents, so only the compound is reported.
	if active[ActionJumpingJack] {
		active[ActionBothHandsRaised] = false
		active[ActionHandRaisedLeft] = false
		active[ActionHandRaisedRight] = false
	}
	if active[ActionBothHandsRaised] {
		active[ActionHandRaisedLeft] = false
		active[ActionHandRaisedRight] = false
	}

	detections := make([]Detection, 0, 4)
	for _, a := range AllActions {
		if !active[a] {
			continue
		}
		detections = append(detections, Detection{
			Action:     a,
			Confidence: c.windows[a].meanConfidence(),
		})
	}
	return detections
}

// Reset clears all smoothing windows. Called when tracking is lost so stale
// activations cannot leak into the next tracked subject.
func (c *Classifier) Reset() {
	for _, w := range c.windows {
		w.reset()
	}
}

type rawResult struct {
	active bool
	conf   float64
}

// rawDetections evaluates every geometric predicate for a single frame.
func (c *Classifier) rawDetections(person *Person) map[Action]rawResult {
	raw := make(map[Action]rawResult, len(AllActions))

	leftHand := c.handRaised(person, LeftWrist, LeftShoulder)
	rightHand := c.handRaised(person, RightWrist, RightShoulder)
	raw[ActionHandRaisedLeft] = leftHand
	raw[ActionHandRaisedRight] = rightHand
	raw[ActionBothHandsRaised] = combine(leftHand, rightHand)

	raw[ActionLegRaisedLeft] = c.legRaised(person, LeftAnkle, RightAnkle)
	raw[ActionLegRaisedRight] = c.legRaised(person, RightAnkle, LeftAnkle)

	leanLeft, leanRight := c.leaning(person)
	raw[ActionLeaningLeft] = leanLeft
	raw[ActionLeaningRight] = leanRight

	raw[ActionSquat] = c.squatting(person)
	raw[ActionJumpingJack] = c.jumpingJack(person, raw[ActionBothHandsRaised])

	return raw
}

// usable returns the keypoints at the given indices if every one of them
// meets the minimum score, along with their mean score.
func (c *Classifier) usable(person *Person, idxs ...int) ([]Keypoint, float64, bool) {
	kps := make([]Keypoint, len(idxs))
	var sum float64
	for i, idx := range idxs {
		kp := person.Keypoints[idx]
		if kp.Score < c.config.MinKeypointScore {
			return nil, 0, false
		}
		kps[i] = kp
		sum += kp.Score
	}
	return kps, sum / float64(len(idxs)), true
}

// handRaised: wrist above the shoulder by at least the margin. Normalized Y
// grows downward, so "above" means a smaller Y.
func (c *Classifier) handRaised(person *Person, wristIdx, shoulderIdx int) rawResult {
	kps, conf, ok := c.usable(person, wristIdx, shoulderIdx)
	if !ok {
		return rawResult{}
	}
	wrist, shoulder := kps[0], kps[1]
	return rawResult{
		active: wrist.Y < shoulder.Y-c.config.HandRaiseMargin,
		conf:   conf,
	}
}

// legRaised: the ankle lifted above the opposite (planted) ankle by at least
// the margin.
func (c *Classifier) legRaised(person *Person, ankleIdx, oppositeIdx int) rawResult {
	kps, conf, ok := c.usable(person, ankleIdx, oppositeIdx)
	if !ok {
		return rawResult{}
	}
	ankle, opposite := kps[0], kps[1]
	return rawResult{
		active: ankle.Y < opposite.Y-c.config.LegRaiseMargin,
		conf:   conf,
	}
}

// leaning: the shoulder midpoint displaced horizontally from the hip midpoint
// beyond the margin. Directions are in image coordinates; the subject's
// mirrored body side is handled by the protocol step table, not here.
func (c *Classifier) leaning(person *Person) (left, right rawResult) {
	kps, conf, ok := c.usable(person, LeftShoulder, RightShoulder, LeftHip, RightHip)
	if !ok {
		return rawResult{}, rawResult{}
	}
	shoulderMidX := (kps[0].X + kps[1].X) / 2
	hipMidX := (kps[2].X + kps[3].X) / 2
	offset := shoulderMidX - hipMidX

	left = rawResult{active: offset < -c.config.LeanMargin, conf: conf}
	right = rawResult{active: offset > c.config.LeanMargin, conf: conf}
	return left, right
}

// squatting: the vertical hip-to-knee gap collapses below the depth margin.
func (c *Classifier) squatting(person *Person) rawResult {
	kps, conf, ok := c.usable(person, LeftHip, RightHip, LeftKnee, RightKnee)
	if !ok {
		return rawResult{}
	}
	hipMidY := (kps[0].Y + kps[1].Y) / 2
	kneeMidY := (kps[2].Y + kps[3].Y) / 2
	return rawResult{
		active: kneeMidY-hipMidY < c.config.SquatDepthMargin,
		conf:   conf,
	}
}

// jumpingJack: both hands raised with the feet spread wider than the
// shoulder width times the spread factor.
func (c *Classifier) jumpingJack(person *Person, bothHands rawResult) rawResult {
	if !bothHands.active {
		return rawResult{}
	}
	kps, conf, ok := c.usable(person, LeftAnkle, RightAnkle, LeftShoulder, RightShoulder)
	if !ok {
		return rawResult{}
	}
	ankleSpread := math.Abs(kps[0].X - kps[1].X)
	shoulderWidth := math.Abs(kps[2].X - kps[3].X)
	if shoulderWidth == 0 {
		return rawResult{}
	}
	return rawResult{
		active: ankleSpread > shoulderWidth*c.config.JackSpreadFactor,
		conf:   math.Min(conf, bothHands.conf),
	}
}

func combine(a, b rawResult) rawResult {
	return rawResult{
		active: a.active && b.active,
		conf:   math.Min(a.conf, b.conf),
	}
}
