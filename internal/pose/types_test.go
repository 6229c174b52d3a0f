package pose

import (
	"math"
	"testing"
)

func TestCentroidWeighted(t *testing.T) {
	var p Person
	p.Keypoints[Nose] = Keypoint{X: 0.0, Y: 0.0, Score: 1.0}
	p.Keypoints[LeftShoulder] = Keypoint{X: 1.0, Y: 1.0, Score: 3.0}

	c := p.Centroid()
	if math.Abs(c.X-0.75) > 1e-9 || math.Abs(c.Y-0.75) > 1e-9 {
		t.Errorf("centroid = %+v, want (0.75, 0.75)", c)
	}
}

func TestCentroidIgnoresZeroScore(t *testing.T) {
	var p Person
	p.Keypoints[Nose] = Keypoint{X: 0.5, Y: 0.5, Score: 0.8}
	p.Keypoints[LeftAnkle] = Keypoint{X: 99, Y: 99, Score: 0}

	c := p.Centroid()
	if c.X != 0.5 || c.Y != 0.5 {
		t.Errorf("centroid = %+v, want (0.5, 0.5)", c)
	}
}

func TestCentroidEmptyPerson(t *testing.T) {
	var p Person
	if c := p.Centroid(); c != (Point2D{}) {
		t.Errorf("centroid of empty person = %+v, want zero", c)
	}
}

func TestBoundingBox(t *testing.T) {
	var p Person
	p.Keypoints[Nose] = Keypoint{X: 0.2, Y: 0.1, Score: 0.9}
	p.Keypoints[LeftAnkle] = Keypoint{X: 0.6, Y: 0.9, Score: 0.9}
	p.Keypoints[RightAnkle] = Keypoint{X: 0.4, Y: 0.95, Score: 0}

	b := p.BoundingBox()
	want := Box{MinX: 0.2, MinY: 0.1, MaxX: 0.6, MaxY: 0.9}
	if b != want {
		t.Errorf("bounding box = %+v, want %+v", b, want)
	}
}

func TestDistance(t *testing.T) {
	d := Point2D{X: 0, Y: 0}.Distance(Point2D{X: 3, Y: 4})
	if math.Abs(d-5) > 1e-9 {
		t.Errorf("distance = %v, want 5", d)
	}
}

func TestPartName(t *testing.T) {
	if got := PartName(LeftWrist); got != "left_wrist" {
		t.Errorf("PartName(LeftWrist) = %q", got)
	}
	if got := PartName(-1); got != "" {
		t.Errorf("PartName(-1) = %q, want empty", got)
	}
	if got := PartName(NumKeypoints); got != "" {
		t.Errorf("PartName(out of range) = %q, want empty", got)
	}
}
