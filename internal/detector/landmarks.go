// Package detector provides face landmark extraction and the eye geometry
// derived from it.
package detector

import (
	"errors"
	"math"
)

// NumLandmarks is the number of points in a refined face mesh.
const NumLandmarks = 478

// Face mesh indices used for eye geometry, following the MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	RightEyeOuter  = 33
	RightEyeInner  = 133
	RightEyeTop    = 159
	RightEyeBottom = 145
	LeftEyeInner   = 362
	LeftEyeOuter   = 263
	LeftEyeTop     = 386
	LeftEyeBottom  = 374
)

// Contour and iris index sets fed to the classifier, in model input order.
var (
	LeftEye  = []int{362, 382, 381, 380, 374, 373, 390, 249, 263, 466, 388, 387, 386, 385, 384, 398}
	RightEye = []int{33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246}
	Iris     = []int{474, 475, 476, 477, 473, 469, 470, 471, 472, 468}
)

// FeatureLen is the length of the vector produced by IrisFeatures.
var FeatureLen = 2 * (len(LeftEye) + len(RightEye) + len(Iris))

// ErrTooFewLandmarks is returned when a face lacks the refined iris points.
var ErrTooFewLandmarks = errors.New("face has too few landmarks")

// Point3D is a landmark in normalized image coordinates. Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks is the mesh of one detected face.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// distance2D calculates the Euclidean distance between two points in the XY plane.
func distance2D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// mean2D averages the XY coordinates of the given landmark indices.
func (f *FaceLandmarks) mean2D(indices []int) Point3D {
	var c Point3D
	for _, i := range indices {
		c.X += f.Points[i].X
		c.Y += f.Points[i].Y
	}
	n := float64(len(indices))
	c.X /= n
	c.Y /= n
	return c
}

// IrisFeatures builds the classifier input: every eye contour and iris point
// expressed relative to the midpoint between the two eye centres, flattened as
// x0, y0, x1, y1, ...
func (f *FaceLandmarks) IrisFeatures() ([]float32, error) {
	if f == nil || len(f.Points) < NumLandmarks {
		return nil, ErrTooFewLandmarks
	}

	left := f.mean2D(LeftEye)
	right := f.mean2D(RightEye)
	midX := (left.X + right.X) / 2.0
	midY := (left.Y + right.Y) / 2.0

	features := make([]float32, 0, FeatureLen)
	for _, set := range [][]int{LeftEye, RightEye, Iris} {
		for _, i := range set {
			features = append(features,
				float32(f.Points[i].X-midX),
				float32(f.Points[i].Y-midY),
			)
		}
	}
	return features, nil
}

// EyeOpenness returns the height-to-width ratio of each eye measured in pixels
// of a width x height frame. Values near zero mean the eye is closed.
func (f *FaceLandmarks) EyeOpenness(width, height int) (left, right float64, err error) {
	if f == nil || len(f.Points) <= LeftEyeTop {
		return 0, 0, ErrTooFewLandmarks
	}

	px := func(i int) Point3D {
		p := f.Points[i]
		return Point3D{X: math.Trunc(p.X * float64(width)), Y: math.Trunc(p.Y * float64(height))}
	}

	right = ratio(distance2D(px(RightEyeTop), px(RightEyeBottom)), distance2D(px(RightEyeOuter), px(RightEyeInner)))
	left = ratio(distance2D(px(LeftEyeTop), px(LeftEyeBottom)), distance2D(px(LeftEyeInner), px(LeftEyeOuter)))
	return left, right, nil
}

// ratio divides a by b, returning 0 for a degenerate width.
func ratio(a, b float64) float64 {
	if b < 1e-9 {
		return 0
	}
	return a / b
}
