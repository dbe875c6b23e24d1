package planner

import (
	"encoding/json"
	"fmt"
	"slices"

	"penplan/motion"
	"penplan/motion/kinematics"
)

// Motion is one entry of a Plan: a Block or a PenEvent
type Motion interface {
	motionDuration() float64
}

// Block is a straight move with a fully resolved velocity profile
type Block struct {
	Start motion.Point
	End   motion.Point
	Pen   motion.PenState

	Length        float64 // steps
	EntryVelocity float64 // steps/s
	PeakVelocity  float64 // steps/s
	ExitVelocity  float64 // steps/s
	Acceleration  float64 // steps/s^2

	AccelTime  float64 // seconds
	CruiseTime float64 // seconds
	DecelTime  float64 // seconds
	Duration   float64 // seconds
}

func (b Block) motionDuration() float64 { return b.Duration }

// Shape returns the trapezoidal profile of the block
func (b Block) Shape() kinematics.Trapezoid {
	return kinematics.Trapezoid{
		V0: b.EntryVelocity,
		Vp: b.PeakVelocity,
		V1: b.ExitVelocity,
		A:  b.Acceleration,
		D:  b.Length,
	}
}

// Instant returns the position and speed t seconds after the block starts
func (b Block) Instant(t float64) (motion.Point, float64) {
	shape := b.Shape()
	if b.Length == 0 {
		return b.Start, 0
	}
	d := shape.DistanceAt(t)
	dir := b.End.Sub(b.Start).Mul(1 / b.Length)
	return b.Start.Add(dir.Mul(d)), shape.VelocityAt(t)
}

// PenDirection is the direction of a pen event
type PenDirection uint8

const (
	Lift PenDirection = iota
	Drop
)

func (d PenDirection) String() string {
	if d == Drop {
		return "drop"
	}
	return "lift"
}

// PenEvent is a pen state change. It consumes time with no XY motion.
type PenEvent struct {
	Direction PenDirection
	Position  motion.Point // where the carriage rests during the event
	From      int          // actuator position before the event
	To        int          // actuator position after the event
	Duration  float64      // seconds
}

func (e PenEvent) motionDuration() float64 { return e.Duration }

// Plan is the immutable, time-ordered output of a planning call
type Plan struct {
	motions []Motion
}

// Len returns the number of motions in the plan
func (p *Plan) Len() int {
	return len(p.motions)
}

// At returns the i-th motion
func (p *Plan) At(i int) Motion {
	return p.motions[i]
}

// Motions returns a copy of the plan's motions in execution order
func (p *Plan) Motions() []Motion {
	return slices.Clone(p.motions)
}

// Blocks returns the plan's blocks in execution order
func (p *Plan) Blocks() []Block {
	var blocks []Block
	for _, m := range p.motions {
		if b, ok := m.(Block); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// PenEvents returns the plan's pen events in execution order
func (p *Plan) PenEvents() []PenEvent {
	var events []PenEvent
	for _, m := range p.motions {
		if e, ok := m.(PenEvent); ok {
			events = append(events, e)
		}
	}
	return events
}

// Duration returns the total execution time in seconds
func (p *Plan) Duration() float64 {
	total := 0.0
	for _, m := range p.motions {
		total += m.motionDuration()
	}
	return total
}

// Distance returns the XY distance travelled with the pen in the given state
func (p *Plan) Distance(pen motion.PenState) float64 {
	total := 0.0
	for _, m := range p.motions {
		if b, ok := m.(Block); ok && b.Pen == pen {
			total += b.Length
		}
	}
	return total
}

// Summary aggregates a plan for display
type Summary struct {
	Blocks       int
	Strokes      int
	Duration     float64
	DrawDistance float64
	TravelDist   float64
}

// Summary returns aggregate statistics of the plan
func (p *Plan) Summary() Summary {
	s := Summary{
		Duration:     p.Duration(),
		DrawDistance: p.Distance(motion.PenDown),
		TravelDist:   p.Distance(motion.PenUp),
	}
	for _, m := range p.motions {
		switch m := m.(type) {
		case Block:
			s.Blocks++
		case PenEvent:
			if m.Direction == Drop {
				s.Strokes++
			}
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d strokes, %d blocks, %.1fs, draw %.0f steps, travel %.0f steps",
		s.Strokes, s.Blocks, s.Duration, s.DrawDistance, s.TravelDist)
}

type blockJSON struct {
	Type          string     `json:"type"`
	Start         [2]float64 `json:"start"`
	End           [2]float64 `json:"end"`
	Pen           string     `json:"pen"`
	Length        float64    `json:"length"`
	EntryVelocity float64    `json:"v_entry"`
	PeakVelocity  float64    `json:"v_peak"`
	ExitVelocity  float64    `json:"v_exit"`
	Acceleration  float64    `json:"accel"`
	Duration      float64    `json:"duration"`
}

type penJSON struct {
	Type      string  `json:"type"`
	Direction string  `json:"direction"`
	From      int     `json:"from"`
	To        int     `json:"to"`
	Duration  float64 `json:"duration"`
}

// MarshalJSON encodes the plan as an array of tagged motions
func (p *Plan) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(p.motions))
	for _, m := range p.motions {
		switch m := m.(type) {
		case Block:
			out = append(out, blockJSON{
				Type:          "block",
				Start:         [2]float64{m.Start.X, m.Start.Y},
				End:           [2]float64{m.End.X, m.End.Y},
				Pen:           m.Pen.String(),
				Length:        m.Length,
				EntryVelocity: m.EntryVelocity,
				PeakVelocity:  m.PeakVelocity,
				ExitVelocity:  m.ExitVelocity,
				Acceleration:  m.Acceleration,
				Duration:      m.Duration,
			})
		case PenEvent:
			out = append(out, penJSON{
				Type:      "pen",
				Direction: m.Direction.String(),
				From:      m.From,
				To:        m.To,
				Duration:  m.Duration,
			})
		}
	}
	return json.Marshal(out)
}
