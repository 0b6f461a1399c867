package geometry

import "math"

const (
	// MaxCurvature bounds the curvature scalar in both directions.
	MaxCurvature = 1.5

	// SagittaFactor scales chord length into the sagitta at curvature 1.
	SagittaFactor = 0.35
)

// ClampCurvature limits c to [-MaxCurvature, MaxCurvature].
func ClampCurvature(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(-MaxCurvature, math.Min(MaxCurvature, c))
}

// ChordFrame describes the chord between two endpoints.
type ChordFrame struct {
	Tangent Point   // unit vector from start to end
	Normal  Point   // Tangent rotated by +90°: (-u.y, u.x)
	Mid     Point   // chord midpoint
	Length  float64 // chord length, 1 when start == end
}

// Chord computes the frame of the chord from start to end. A zero-length
// chord uses length 1 so callers never divide by zero.
func Chord(start, end Point) ChordFrame {
	d := end.Sub(start)
	length := d.Len()
	if length == 0 {
		length = 1
	}
	u := d.Scale(1 / length)
	return ChordFrame{
		Tangent: u,
		Normal:  Point{X: -u.Y, Y: u.X},
		Mid:     Midpoint(start, end),
		Length:  length,
	}
}

// Sagitta returns the signed perpendicular offset of the control point.
func (f ChordFrame) Sagitta(curvature float64) float64 {
	return ClampCurvature(curvature) * f.Length * SagittaFactor
}

// ControlPoint returns the quadratic Bezier control point for the chord
// start→end bent by curvature.
func ControlPoint(start, end Point, curvature float64) Point {
	f := Chord(start, end)
	return f.Mid.Add(f.Normal.Scale(f.Sagitta(curvature)))
}

// QuadraticPoint evaluates B(t) = (1-t)²·p0 + 2(1-t)t·ctrl + t²·p1.
func QuadraticPoint(p0, ctrl, p1 Point, t float64) Point {
	mt := 1 - t
	a := mt * mt
	b := 2 * mt * t
	c := t * t
	return Point{
		X: a*p0.X + b*ctrl.X + c*p1.X,
		Y: a*p0.Y + b*ctrl.Y + c*p1.Y,
	}
}

// PlaceAlongCurve returns n points on the curve. With n > 1 both endpoints
// are included; a single point sits at t = 0.5.
func PlaceAlongCurve(start, end Point, curvature float64, n int) []Point {
	if n <= 0 {
		return nil
	}
	ctrl := ControlPoint(start, end, curvature)
	if n == 1 {
		return []Point{QuadraticPoint(start, ctrl, end, 0.5)}
	}
	pts := make([]Point, n)
	for i := range pts {
		t := float64(i) / float64(n-1)
		pts[i] = QuadraticPoint(start, ctrl, end, t)
	}
	return pts
}

// CurvatureFromPoint recovers the curvature whose control point projects
// onto the chord normal at the same offset as p. It is the inverse of
// ControlPoint for any non-degenerate chord.
func CurvatureFromPoint(start, end, p Point) float64 {
	f := Chord(start, end)
	projection := p.Sub(f.Mid).Dot(f.Normal)
	return ClampCurvature(projection / (f.Length * SagittaFactor))
}

// CurvePath returns the "M"/"Q" path segments describing the curve.
func CurvePath(start, end Point, curvature float64) [][]any {
	ctrl := ControlPoint(start, end, curvature)
	return [][]any{
		{"M", start.X, start.Y},
		{"Q", ctrl.X, ctrl.Y, end.X, end.Y},
	}
}
