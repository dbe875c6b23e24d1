package kinematics

import "math"

// Trapezoid is the velocity-vs-time shape of one straight move under a
// single acceleration magnitude: accelerate V0->Vp, cruise at Vp, decelerate
// Vp->V1. When the cruise phase is empty the shape is triangular.
type Trapezoid struct {
	V0 float64 // entry velocity
	Vp float64 // peak velocity
	V1 float64 // exit velocity
	A  float64 // acceleration magnitude
	D  float64 // length
}

// NewTrapezoid returns the fastest profile covering d from v0 to v1 without
// exceeding vmax. The caller guarantees |v1^2 - v0^2| <= 2*a*d.
func NewTrapezoid(v0, v1, vmax, a, d float64) Trapezoid {
	// Peak of the triangular profile: accel and decel distances sum to d
	vp := math.Sqrt((2*a*d + v0*v0 + v1*v1) / 2)
	if vp > vmax {
		vp = vmax
	}
	// Rounding can leave vp a hair under an endpoint velocity
	vp = math.Max(vp, math.Max(v0, v1))
	return Trapezoid{V0: v0, Vp: vp, V1: v1, A: a, D: d}
}

// AccelTime returns the duration of the acceleration phase
func (t Trapezoid) AccelTime() float64 {
	return (t.Vp - t.V0) / t.A
}

// DecelTime returns the duration of the deceleration phase
func (t Trapezoid) DecelTime() float64 {
	return (t.Vp - t.V1) / t.A
}

// AccelDistance returns the distance covered while accelerating
func (t Trapezoid) AccelDistance() float64 {
	return (t.Vp*t.Vp - t.V0*t.V0) / (2 * t.A)
}

// DecelDistance returns the distance covered while decelerating
func (t Trapezoid) DecelDistance() float64 {
	return (t.Vp*t.Vp - t.V1*t.V1) / (2 * t.A)
}

// CruiseDistance returns the distance covered at peak velocity
func (t Trapezoid) CruiseDistance() float64 {
	return math.Max(0, t.D-t.AccelDistance()-t.DecelDistance())
}

// CruiseTime returns the duration of the cruise phase
func (t Trapezoid) CruiseTime() float64 {
	cd := t.CruiseDistance()
	if cd <= 0 || t.Vp <= 0 {
		return 0
	}
	return cd / t.Vp
}

// Triangular reports whether the profile has no cruise phase
func (t Trapezoid) Triangular() bool {
	return t.CruiseDistance() <= 1e-9*math.Max(1, t.D)
}

// Duration returns the total time of the profile
func (t Trapezoid) Duration() float64 {
	return t.AccelTime() + t.CruiseTime() + t.DecelTime()
}

// DistanceAt returns the distance travelled at time tau since the start.
// tau is clamped to [0, Duration].
func (t Trapezoid) DistanceAt(tau float64) float64 {
	if tau <= 0 {
		return 0
	}
	ta, tc, td := t.AccelTime(), t.CruiseTime(), t.DecelTime()
	if tau >= ta+tc+td {
		return t.D
	}
	if tau < ta {
		return t.V0*tau + 0.5*t.A*tau*tau
	}
	s := t.AccelDistance()
	if tau < ta+tc {
		return s + t.Vp*(tau-ta)
	}
	s += t.CruiseDistance()
	dt := tau - ta - tc
	return math.Min(t.D, s+t.Vp*dt-0.5*t.A*dt*dt)
}

// VelocityAt returns the speed at time tau since the start
func (t Trapezoid) VelocityAt(tau float64) float64 {
	ta, tc, td := t.AccelTime(), t.CruiseTime(), t.DecelTime()
	switch {
	case tau <= 0:
		return t.V0
	case tau < ta:
		return t.V0 + t.A*tau
	case tau < ta+tc:
		return t.Vp
	case tau < ta+tc+td:
		return t.Vp - t.A*(tau-ta-tc)
	default:
		return t.V1
	}
}
