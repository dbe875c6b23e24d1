package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"seehuhn.de/go/geom/vec"

	"penplan/motion"
)

func TestTurnAngle(t *testing.T) {
	tests := []struct {
		name string
		in   vec.Vec2
		out  vec.Vec2
		want float64
	}{
		{"straight", vec.Vec2{X: 1}, vec.Vec2{X: 5}, 0},
		{"right angle", vec.Vec2{X: 1}, vec.Vec2{Y: 1}, math.Pi / 2},
		{"reversal", vec.Vec2{X: 1}, vec.Vec2{X: -2}, math.Pi},
		{"zero length", vec.Vec2{}, vec.Vec2{X: 1}, math.Pi},
	}

	for _, test := range tests {
		got := TurnAngle(test.in, test.out)
		if math.Abs(got-test.want) > 1e-12 {
			t.Errorf("%s: expected %f, got %f", test.name, test.want, got)
		}
	}
}

func TestJunctionVelocityLimits(t *testing.T) {
	profile := motion.MotionProfile{Acceleration: 1000, MaximumVelocity: 500, CorneringFactor: 1}

	assert.Equal(t, 500.0, JunctionVelocity(0, profile), "straight continuation runs at max velocity")
	assert.Equal(t, 0.0, JunctionVelocity(math.Pi, profile), "reversal stops")
	assert.Equal(t, 0.0, JunctionVelocity(math.NaN(), profile))

	profile.CorneringFactor = 0
	assert.Equal(t, 0.0, JunctionVelocity(math.Pi/4, profile), "zero cornering factor stops")
}

func TestJunctionVelocityRightAngle(t *testing.T) {
	profile := motion.MotionProfile{Acceleration: 1000, MaximumVelocity: 500, CorneringFactor: 1}
	s := math.Sin(math.Pi / 4)
	want := math.Sqrt(1000 * s / (1 - s + junctionEpsilon))
	assert.InDelta(t, want, JunctionVelocity(math.Pi/2, profile), 1e-9)
}

func TestJunctionVelocityMonotone(t *testing.T) {
	profile := motion.MotionProfile{Acceleration: 1000, MaximumVelocity: 1e9, CorneringFactor: 2}

	prev := math.Inf(1)
	for theta := 0.05; theta < math.Pi; theta += 0.05 {
		v := JunctionVelocity(theta, profile)
		if v > prev {
			t.Errorf("junction velocity increased from %f to %f at theta=%f", prev, v, theta)
		}
		prev = v
	}

	low := JunctionVelocity(1, motion.MotionProfile{Acceleration: 1000, MaximumVelocity: 1e9, CorneringFactor: 1})
	high := JunctionVelocity(1, motion.MotionProfile{Acceleration: 1000, MaximumVelocity: 1e9, CorneringFactor: 4})
	assert.Greater(t, high, low, "larger cornering factor keeps more speed")

	slow := JunctionVelocity(1, motion.MotionProfile{Acceleration: 100, MaximumVelocity: 1e9, CorneringFactor: 1})
	assert.Greater(t, low, slow, "larger acceleration keeps more speed")
}

func TestTrapezoidCruise(t *testing.T) {
	tr := NewTrapezoid(0, 0, 500, 1000, 100000)

	assert.Equal(t, 500.0, tr.Vp)
	assert.InDelta(t, 0.5, tr.AccelTime(), 1e-12)
	assert.InDelta(t, 0.5, tr.DecelTime(), 1e-12)
	assert.InDelta(t, 99750, tr.CruiseDistance(), 1e-9)
	assert.InDelta(t, 199.5, tr.CruiseTime(), 1e-9)
	assert.InDelta(t, 200.5, tr.Duration(), 1e-9)
	assert.False(t, tr.Triangular())
}

func TestTrapezoidTriangle(t *testing.T) {
	tr := NewTrapezoid(0, 0, 500, 1000, 10)

	assert.InDelta(t, 100, tr.Vp, 1e-9)
	assert.True(t, tr.Triangular())
	assert.Equal(t, 0.0, tr.CruiseTime())
	assert.InDelta(t, 0.2, tr.Duration(), 1e-12)
}

func TestTrapezoidAsymmetric(t *testing.T) {
	// Enter fast, leave slow: peak sits above both ends but below vmax
	tr := NewTrapezoid(80, 20, 500, 1000, 10)

	want := math.Sqrt((2*1000*10 + 80*80 + 20*20) / 2.0)
	assert.InDelta(t, want, tr.Vp, 1e-9)
	assert.InDelta(t, 10, tr.AccelDistance()+tr.DecelDistance(), 1e-9)
}

func TestTrapezoidDistanceAt(t *testing.T) {
	tr := NewTrapezoid(0, 0, 500, 1000, 100000)

	assert.Equal(t, 0.0, tr.DistanceAt(-1))
	assert.InDelta(t, 125, tr.DistanceAt(0.5), 1e-9)
	assert.InDelta(t, 125+500*10, tr.DistanceAt(10.5), 1e-9)
	assert.Equal(t, 100000.0, tr.DistanceAt(tr.Duration()+1))

	prev := 0.0
	for tau := 0.0; tau <= tr.Duration(); tau += 0.25 {
		d := tr.DistanceAt(tau)
		if d < prev {
			t.Errorf("distance decreased at t=%f: %f < %f", tau, d, prev)
		}
		prev = d
	}
}

func TestTrapezoidVelocityAt(t *testing.T) {
	tr := NewTrapezoid(0, 0, 500, 1000, 100000)

	assert.Equal(t, 0.0, tr.VelocityAt(0))
	assert.InDelta(t, 250, tr.VelocityAt(0.25), 1e-9)
	assert.Equal(t, 500.0, tr.VelocityAt(100))
	assert.InDelta(t, 250, tr.VelocityAt(tr.Duration()-0.25), 1e-9)
	assert.Equal(t, 0.0, tr.VelocityAt(tr.Duration()))
}

func TestBrakingDistance(t *testing.T) {
	assert.Equal(t, 0.0, BrakingDistance(10, 20, 100))
	assert.InDelta(t, 125, BrakingDistance(500, 0, 1000), 1e-12)
	assert.True(t, math.IsInf(BrakingDistance(1, 0, 0), 1))
	assert.InDelta(t, 100, ReachableVelocity(0, 1000, 5), 1e-12)
}

func TestKinematics(t *testing.T) {
	pos := motion.Point{X: 3, Y: 1}

	cart, err := New("cartesian")
	assert.NoError(t, err)
	assert.Equal(t, [2]float64{3, 1}, cart.CalcPosition(pos))

	core, err := New("corexy")
	assert.NoError(t, err)
	assert.Equal(t, [2]float64{4, 2}, core.CalcPosition(pos))
	assert.Equal(t, "corexy", core.Name())

	_, err = New("delta")
	assert.ErrorIs(t, err, ErrUnknownKinematics)
}
