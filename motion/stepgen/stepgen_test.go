package stepgen

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penplan/motion"
	"penplan/motion/kinematics"
	"penplan/motion/planner"
)

func testPlan(t *testing.T, paths ...motion.Path) *planner.Plan {
	t.Helper()
	plan, err := planner.PlanPaths(context.Background(), paths, planner.Options{
		PenDownProfile:  motion.MotionProfile{Acceleration: 1000, MaximumVelocity: 500, CorneringFactor: 5},
		PenUpProfile:    motion.MotionProfile{Acceleration: 2000, MaximumVelocity: 1000},
		PenDropDuration: 0.12,
		PenLiftDuration: 0.1,
		PenUpPos:        16000,
		PenDownPos:      12000,
		Home:            &motion.Point{},
	})
	require.NoError(t, err)
	return plan
}

func sumSteps(cmds []Command) [2]int {
	var total [2]int
	for _, c := range cmds {
		if mv, ok := c.(Move); ok {
			total[0] += mv.Steps[0]
			total[1] += mv.Steps[1]
		}
	}
	return total
}

func TestStepsAreConserved(t *testing.T) {
	plan := testPlan(t,
		motion.Path{{X: 10.4, Y: 3.3}, {X: 250.7, Y: 80.2}, {X: 40.1, Y: 300.9}},
		motion.Path{{X: 500, Y: 500}, {X: 510.5, Y: 499.5}},
	)

	for _, kin := range []kinematics.Kinematics{kinematics.Cartesian{}, kinematics.CoreXY{}} {
		cmds, err := Generate(plan, Config{Kinematics: kin})
		require.NoError(t, err)

		// The plan starts and ends at home, so net motion is zero
		assert.Equal(t, [2]int{0, 0}, sumSteps(cmds), kin.Name())
	}
}

func TestMovePerInterval(t *testing.T) {
	plan := testPlan(t, motion.Path{{X: 0}, {X: 100000}})
	g := NewGenerator(Config{Interval: 10 * time.Millisecond})

	var down planner.Block
	for _, b := range plan.Blocks() {
		if b.Pen == motion.PenDown {
			down = b
		}
	}
	moves, err := g.Block(down)
	require.NoError(t, err)

	assert.Equal(t, int(math.Ceil(down.Duration/0.01)), len(moves))
	ms := 0
	steps := 0
	for i, mv := range moves {
		if mv.DurationMS <= 0 {
			t.Errorf("Move %d has duration %d", i, mv.DurationMS)
		}
		ms += mv.DurationMS
		steps += mv.Steps[0]
	}
	assert.Equal(t, 100000, steps)
	assert.InDelta(t, down.Duration*1000, float64(ms), 1)
}

func TestPenMoves(t *testing.T) {
	plan := testPlan(t, motion.Path{{X: 0}, {X: 100}})
	cmds, err := Generate(plan, Config{})
	require.NoError(t, err)

	var pens []PenMove
	for _, c := range cmds {
		if p, ok := c.(PenMove); ok {
			pens = append(pens, p)
		}
	}
	require.Len(t, pens, 2)
	assert.False(t, pens[0].Up)
	assert.Equal(t, 12000, pens[0].Position)
	assert.Equal(t, 120, pens[0].DurationMS)
	assert.True(t, pens[1].Up)
	assert.Equal(t, 16000, pens[1].Position)
	assert.Equal(t, 100, pens[1].DurationMS)

	assert.InDelta(t, plan.Duration()*1000, float64(TotalDuration(cmds)), float64(len(cmds)))
}

func TestStepRateLimit(t *testing.T) {
	plan := testPlan(t, motion.Path{{X: 0}, {X: 100000}})
	_, err := Generate(plan, Config{MaxStepRate: 100})
	assert.ErrorIs(t, err, ErrStepRate)

	_, err = Generate(plan, Config{MaxStepRate: 25000})
	assert.NoError(t, err)
}
