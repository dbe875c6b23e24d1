// Package motion holds the geometry and motion-limit types shared by the
// preprocessing, planning and step generation packages.
package motion

import (
	"math"

	"seehuhn.de/go/geom/vec"
)

// Point is a 2-D position. Inside the planner the unit is motor steps;
// upstream of unit conversion it is millimetres.
type Point = vec.Vec2

// Path is one continuous pen-down stroke
type Path []Point

// Length returns the polyline length of the path
func (p Path) Length() float64 {
	total := 0.0
	for i := 1; i < len(p); i++ {
		total += p[i].Sub(p[i-1]).Length()
	}
	return total
}

// Start returns the first point of the path
func (p Path) Start() Point {
	return p[0]
}

// End returns the last point of the path
func (p Path) End() Point {
	return p[len(p)-1]
}

// Reversed returns a copy of the path traversed end to start
func (p Path) Reversed() Path {
	out := make(Path, len(p))
	for i, pt := range p {
		out[len(p)-1-i] = pt
	}
	return out
}

// Clone returns a deep copy of the path
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Scaled returns a copy of the path with every coordinate multiplied by k
func (p Path) Scaled(k float64) Path {
	out := make(Path, len(p))
	for i, pt := range p {
		out[i] = pt.Mul(k)
	}
	return out
}

// MotionProfile holds the kinematic limits for one pen state
type MotionProfile struct {
	Acceleration    float64 // steps/s^2
	MaximumVelocity float64 // steps/s
	CorneringFactor float64 // steps; 0 stops at every corner
}

// PenState is the binary state of the pen-lift axis
type PenState uint8

const (
	PenUp PenState = iota
	PenDown
)

func (s PenState) String() string {
	if s == PenDown {
		return "down"
	}
	return "up"
}

// Bounds returns the axis-aligned bounding box of all paths. ok is false
// when there are no points.
func Bounds(paths []Path) (min, max Point, ok bool) {
	min = Point{X: math.Inf(1), Y: math.Inf(1)}
	max = Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, p := range paths {
		for _, pt := range p {
			min.X = math.Min(min.X, pt.X)
			min.Y = math.Min(min.Y, pt.Y)
			max.X = math.Max(max.X, pt.X)
			max.Y = math.Max(max.Y, pt.Y)
			ok = true
		}
	}
	if !ok {
		return Point{}, Point{}, false
	}
	return min, max, true
}
