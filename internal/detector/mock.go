package detector

import (
	"math"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	faces  []FaceLandmarks
	err    error
	calls  int
	closed int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []FaceLandmarks) {
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]FaceLandmarks, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// Close counts calls so tests can check release happens once.
func (m *MockDetector) Close() error {
	m.closed++
	return nil
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int { return m.calls }

// Closed returns how many times Close was called.
func (m *MockDetector) Closed() int { return m.closed }

// Synthetic face geometry, in normalized coordinates of a 4:3 frame.
const (
	syntheticEyeWidth = 0.1
	syntheticAspect   = 640.0 / 480.0
)

// SyntheticFace returns a face mesh whose eyes have the given pixel
// height-to-width ratio on a 4:3 frame. gaze shifts both irises horizontally
// as a fraction of eye width (-0.5 .. 0.5).
func SyntheticFace(openness, gaze float64) FaceLandmarks {
	face := FaceLandmarks{
		Points: make([]Point3D, NumLandmarks),
		Score:  0.95,
	}
	for i := range face.Points {
		face.Points[i] = Point3D{X: 0.5, Y: 0.6}
	}

	w := syntheticEyeWidth
	h := openness * w * syntheticAspect

	placeEye(face.Points, RightEye, 0.4, 0.45, w, h)
	placeEye(face.Points, LeftEye, 0.6, 0.45, w, h)

	// Corners and lids the openness ratio is measured from.
	face.Points[RightEyeOuter] = Point3D{X: 0.4 - w/2, Y: 0.45}
	face.Points[RightEyeInner] = Point3D{X: 0.4 + w/2, Y: 0.45}
	face.Points[RightEyeTop] = Point3D{X: 0.4, Y: 0.45 - h/2}
	face.Points[RightEyeBottom] = Point3D{X: 0.4, Y: 0.45 + h/2}
	face.Points[LeftEyeInner] = Point3D{X: 0.6 - w/2, Y: 0.45}
	face.Points[LeftEyeOuter] = Point3D{X: 0.6 + w/2, Y: 0.45}
	face.Points[LeftEyeTop] = Point3D{X: 0.6, Y: 0.45 - h/2}
	face.Points[LeftEyeBottom] = Point3D{X: 0.6, Y: 0.45 + h/2}

	// Each iris group holds four rim points and a centre (473 left, 468 right).
	shift := gaze * w
	placeIris(face.Points, Iris[5:], 0.4+shift, 0.45, w/4)
	placeIris(face.Points, Iris[:5], 0.6+shift, 0.45, w/4)

	return face
}

// OpenEyesFace returns a face looking straight ahead with both eyes open.
func OpenEyesFace() FaceLandmarks {
	return SyntheticFace(0.3, 0)
}

// ClosedEyesFace returns a face with both eyes closed.
func ClosedEyesFace() FaceLandmarks {
	return SyntheticFace(0.03, 0)
}

func placeEye(points []Point3D, contour []int, cx, cy, w, h float64) {
	for k, idx := range contour {
		a := 2 * math.Pi * float64(k) / float64(len(contour))
		points[idx] = Point3D{X: cx + w/2*math.Cos(a), Y: cy + h/2*math.Sin(a)}
	}
}

// placeIris puts the iris centre index at (cx, cy) and the rim points on a
// circle of radius r.
func placeIris(points []Point3D, group []int, cx, cy, r float64) {
	rim := 0
	for _, idx := range group {
		if idx == 468 || idx == 473 {
			points[idx] = Point3D{X: cx, Y: cy}
			continue
		}
		a := math.Pi / 2 * float64(rim)
		points[idx] = Point3D{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
		rim++
	}
}
