// Package kinematics holds the motion math shared by the planner and the
// step generator: junction (cornering) velocity, trapezoidal profiles and
// the XY to motor mapping.
package kinematics

import (
	"math"

	"seehuhn.de/go/geom/vec"

	"penplan/motion"
)

// junctionEpsilon keeps the junction formula finite for straight continuations
const junctionEpsilon = 1e-6

// reversalTolerance is how close to pi a turn must be to count as a reversal
const reversalTolerance = 1e-6

// TurnAngle returns the angle in [0, pi] between the incoming and outgoing
// directions: 0 for a straight continuation, pi for a full reversal.
// Zero-length inputs are treated as a reversal.
func TurnAngle(in, out vec.Vec2) float64 {
	li, lo := in.Length(), out.Length()
	if li == 0 || lo == 0 {
		return math.Pi
	}
	c := in.Dot(out) / (li * lo)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// JunctionVelocity returns the highest speed the trajectory may carry
// through a vertex with turn angle theta under profile.
//
// With phi = pi - theta the interior angle at the vertex,
//
//	v = min(vmax, sqrt(a * cf * sin(phi/2) / (1 - sin(phi/2) + eps)))
//
// The result is 0 when the cornering factor is 0, the turn is a reversal,
// or the expression is not a finite non-negative number.
func JunctionVelocity(theta float64, profile motion.MotionProfile) float64 {
	if profile.CorneringFactor <= 0 || math.IsNaN(theta) {
		return 0
	}
	if theta >= math.Pi-reversalTolerance {
		return 0
	}
	s := math.Sin((math.Pi - theta) / 2)
	v := math.Sqrt(profile.Acceleration * profile.CorneringFactor * s / (1 - s + junctionEpsilon))
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(profile.MaximumVelocity, v)
}

// ReachableVelocity returns the speed reached after accelerating from v
// over distance d at acceleration a
func ReachableVelocity(v, a, d float64) float64 {
	return math.Sqrt(v*v + 2*a*d)
}

// BrakingDistance returns the distance needed to slow from v to target at
// deceleration a. It is 0 when v <= target.
func BrakingDistance(v, target, a float64) float64 {
	if v <= target {
		return 0
	}
	if a <= 0 {
		return math.Inf(1)
	}
	return (v*v - target*target) / (2 * a)
}
