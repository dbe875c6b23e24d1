// Package stepgen turns a plan into fixed-interval motor moves with
// integer steps, the form consumed by the device protocol.
package stepgen

import (
	"errors"
	"fmt"
	"math"
	"time"

	"penplan/motion"
	"penplan/motion/kinematics"
	"penplan/motion/planner"
)

// DefaultInterval is the sampling period used when Config.Interval is 0
const DefaultInterval = 15 * time.Millisecond

// ErrStepRate is returned when a move needs more steps per second than the
// motors allow
var ErrStepRate = errors.New("step rate exceeded")

// Command is one device-level action: a Move or a PenMove
type Command interface {
	command()
}

// Move drives both motors for DurationMS milliseconds
type Move struct {
	DurationMS int
	Steps      [2]int
}

func (Move) command() {}

// PenMove sets the pen and waits DurationMS milliseconds
type PenMove struct {
	Up         bool
	Position   int // actuator target
	DurationMS int
}

func (PenMove) command() {}

// Config controls step generation
type Config struct {
	Interval    time.Duration
	Kinematics  kinematics.Kinematics
	MaxStepRate float64 // steps/s per motor; 0 disables the check
}

// Generator tracks the integer motor position across blocks so rounding
// never accumulates
type Generator struct {
	cfg      Config
	position [2]int64
	started  bool
}

// NewGenerator creates a generator; missing config fields get defaults
func NewGenerator(cfg Config) *Generator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Kinematics == nil {
		cfg.Kinematics = kinematics.Cartesian{}
	}
	return &Generator{cfg: cfg}
}

// Generate converts every motion of plan into commands
func Generate(plan *planner.Plan, cfg Config) ([]Command, error) {
	return NewGenerator(cfg).Generate(plan)
}

// Generate converts every motion of plan into commands
func (g *Generator) Generate(plan *planner.Plan) ([]Command, error) {
	var out []Command
	for i := 0; i < plan.Len(); i++ {
		switch m := plan.At(i).(type) {
		case planner.Block:
			moves, err := g.Block(m)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", i, err)
			}
			for _, mv := range moves {
				out = append(out, mv)
			}
		case planner.PenEvent:
			out = append(out, PenMove{
				Up:         m.Direction == planner.Lift,
				Position:   m.To,
				DurationMS: int(math.Round(m.Duration * 1000)),
			})
		}
	}
	return out, nil
}

// Block samples one block every interval and returns the resulting moves
func (g *Generator) Block(b planner.Block) ([]Move, error) {
	if !g.started {
		g.position = g.motorSteps(b.Start)
		g.started = true
	}

	interval := g.cfg.Interval.Seconds()
	n := int(math.Ceil(b.Duration / interval))
	if n < 1 {
		n = 1
	}

	moves := make([]Move, 0, n)
	prevMS := 0
	for k := 1; k <= n; k++ {
		t := math.Min(float64(k)*interval, b.Duration)
		pos := b.End
		if k < n {
			pos, _ = b.Instant(t)
		}

		ms := int(math.Round(t * 1000))
		duration := ms - prevMS
		if duration <= 0 {
			if k < n {
				continue
			}
			duration = 1
		}

		target := g.motorSteps(pos)
		mv := Move{
			DurationMS: duration,
			Steps:      [2]int{int(target[0] - g.position[0]), int(target[1] - g.position[1])},
		}
		if err := g.checkRate(mv); err != nil {
			return nil, err
		}
		moves = append(moves, mv)
		g.position = target
		prevMS = ms
	}
	return moves, nil
}

// Position returns the current motor position in whole steps
func (g *Generator) Position() [2]int64 {
	return g.position
}

func (g *Generator) motorSteps(p motion.Point) [2]int64 {
	m := g.cfg.Kinematics.CalcPosition(p)
	return [2]int64{int64(math.Round(m[0])), int64(math.Round(m[1]))}
}

func (g *Generator) checkRate(mv Move) error {
	if g.cfg.MaxStepRate <= 0 {
		return nil
	}
	seconds := float64(mv.DurationMS) / 1000
	for axis, steps := range mv.Steps {
		rate := math.Abs(float64(steps)) / seconds
		if rate > g.cfg.MaxStepRate {
			return fmt.Errorf("%w: motor %d needs %.0f steps/s (limit %.0f)", ErrStepRate, axis+1, rate, g.cfg.MaxStepRate)
		}
	}
	return nil
}

// TotalDuration returns the summed duration of the commands in milliseconds
func TotalDuration(cmds []Command) int {
	total := 0
	for _, c := range cmds {
		switch c := c.(type) {
		case Move:
			total += c.DurationMS
		case PenMove:
			total += c.DurationMS
		}
	}
	return total
}
