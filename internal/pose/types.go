// Package pose provides the perception-side types and logic for the
// assessment pipeline: landmark frames from an external pose model, subject
// selection and tracking, and geometric movement classification.
package pose

import "math"

// Keypoint part indices following the 17-point MoveNet/PoseNet convention.
const (
	Nose          = 0
	LeftEye       = 1
	RightEye      = 2
	LeftEar       = 3
	RightEar      = 4
	LeftShoulder  = 5
	RightShoulder = 6
	LeftElbow     = 7
	RightElbow    = 8
	LeftWrist     = 9
	RightWrist    = 10
	LeftHip       = 11
	RightHip      = 12
	LeftKnee      = 13
	RightKnee     = 14
	LeftAnkle     = 15
	RightAnkle    = 16
	NumKeypoints  = 17
)

// partNames maps keypoint indices to their wire names.
var partNames = [NumKeypoints]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
}

// PartName returns the wire name for a keypoint index, or "" if out of range.
func PartName(idx int) string {
	if idx < 0 || idx >= NumKeypoints {
		return ""
	}
	return partNames[idx]
}

// Keypoint is a single detected body landmark in normalized image
// coordinates. X and Y are in [0,1] with the origin at the top-left of the
// frame; Z is a relative depth estimate. Score is the detector's confidence
// for this landmark.
type Keypoint struct {
	Part  string  `json:"part"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Score float64 `json:"score"`
}

// Point2D is a point on the normalized image plane.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to q on the normalized plane.
func (p Point2D) Distance(q Point2D) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Box is an axis-aligned bounding box on the normalized image plane.
type Box struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Person is one detected candidate: a fixed-size, ordered set of keypoints
// plus the detector's overall score for the instance.
type Person struct {
	Keypoints [NumKeypoints]Keypoint `json:"keypoints"`
	Score     float64                `json:"score"`
}

// Centroid returns the score-weighted centre of the person's keypoints on the
// normalized plane. Landmarks with zero score are ignored so partially
// occluded candidates still produce a stable centre.
func (p *Person) Centroid() Point2D {
	var sx, sy, sw float64
	for i := range p.Keypoints {
		kp := &p.Keypoints[i]
		if kp.Score <= 0 {
			continue
		}
		sx += kp.X * kp.Score
		sy += kp.Y * kp.Score
		sw += kp.Score
	}
	if sw == 0 {
		return Point2D{}
	}
	return Point2D{X: sx / sw, Y: sy / sw}
}

// BoundingBox returns the tight bounding box around all keypoints with a
// positive score. Returns the zero Box if no keypoint qualifies.
func (p *Person) BoundingBox() Box {
	first := true
	var b Box
	for i := range p.Keypoints {
		kp := &p.Keypoints[i]
		if kp.Score <= 0 {
			continue
		}
		if first {
			b = Box{MinX: kp.X, MinY: kp.Y, MaxX: kp.X, MaxY: kp.Y}
			first = false
			continue
		}
		if kp.X < b.MinX {
			b.MinX = kp.X
		}
		if kp.Y < b.MinY {
			b.MinY = kp.Y
		}
		if kp.X > b.MaxX {
			b.MaxX = kp.X
		}
		if kp.Y > b.MaxY {
			b.MaxY = kp.Y
		}
	}
	return b
}

// CandidateFrame is the set of persons visible in one camera frame. It may be
// empty when the model reports no detection.
type CandidateFrame struct {
	Persons   []Person `json:"persons"`
	UnixNanos int64    `json:"unix_nanos"`
}

// Empty reports whether the frame contains no candidates.
func (f *CandidateFrame) Empty() bool {
	return len(f.Persons) == 0
}
