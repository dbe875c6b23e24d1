// Package planner turns ordered step-unit polylines into a time-ordered
// plan of velocity-limited blocks and pen events.
//
// Velocities are assigned with a lookahead/lookback pass over a contiguous
// segment buffer: the forward pass caps each exit by the profile maximum,
// the junction cap and what is reachable from the entry; the backward pass
// lowers entries until every deceleration is feasible.
package planner

import (
	"context"
	"fmt"
	"math"

	"penplan/motion"
	"penplan/motion/kinematics"
)

// zeroLength is the segment length below which a move is dropped
const zeroLength = 1e-9

// Planner plans paths under a fixed set of validated options. It keeps no
// state between calls and is safe for concurrent use.
type Planner struct {
	opts Options
}

// NewPlanner validates opts and returns a planner using them
func NewPlanner(opts Options) (*Planner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Home != nil {
		home := *opts.Home
		opts.Home = &home
	}
	return &Planner{opts: opts}, nil
}

// Options returns a copy of the planner's options
func (p *Planner) Options() Options {
	opts := p.opts
	if opts.Home != nil {
		home := *opts.Home
		opts.Home = &home
	}
	return opts
}

// PlanPaths validates opts and plans paths in one call
func PlanPaths(ctx context.Context, paths []motion.Path, opts Options) (*Plan, error) {
	p, err := NewPlanner(opts)
	if err != nil {
		return nil, err
	}
	return p.Plan(ctx, paths)
}

// segment is one straight sub-move held in the planning buffer
type segment struct {
	start, end motion.Point
	dir        motion.Point // unit direction
	length     float64
	pen        motion.PenState
	profile    motion.MotionProfile

	maxEntry float64 // junction cap at start
	entry    float64
	exit     float64
}

// run is a range of segments that starts and ends at rest
type run struct {
	first, last int // segment indices, last exclusive
	pen         motion.PenState
	from, to    motion.Point
}

// buffer is the segment storage for one planning call
type buffer struct {
	opts *Options
	segs []segment
	runs []run
}

// Plan computes the plan for paths. It never fails on degenerate geometry;
// it returns an error only when ctx is cancelled.
func (p *Planner) Plan(ctx context.Context, paths []motion.Path) (*Plan, error) {
	buf := &buffer{
		opts: &p.opts,
		segs: make([]segment, 0, pointCount(paths)+2),
	}

	var cursor motion.Point
	placed := false
	if p.opts.Home != nil {
		cursor, placed = *p.opts.Home, true
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("planning cancelled: %w", err)
		}
		pts := distinctPoints(path)
		if len(pts) < 2 {
			continue
		}
		if placed {
			buf.addTravel(cursor, pts[0])
		}
		buf.addStroke(pts)
		cursor, placed = pts[len(pts)-1], true
	}
	if p.opts.Home != nil && placed {
		buf.addTravel(cursor, *p.opts.Home)
	}

	sched := newScheduler(&p.opts, len(buf.segs)+2*len(buf.runs))
	for _, r := range buf.runs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("planning cancelled: %w", err)
		}
		buf.forwardPass(r)
		buf.backwardPass(r)

		if r.pen == motion.PenDown {
			if err := sched.drop(r.from); err != nil {
				return nil, err
			}
		}
		for i := r.first; i < r.last; i++ {
			if err := sched.block(buf.segs[i].block()); err != nil {
				return nil, err
			}
		}
		if r.pen == motion.PenDown {
			if err := sched.lift(r.to); err != nil {
				return nil, err
			}
		}
	}
	return sched.finish(cursor)
}

// addStroke appends the pen-down segments of one path. pts holds at least
// two points with no zero-length pair.
func (b *buffer) addStroke(pts []motion.Point) {
	r := run{first: len(b.segs), pen: motion.PenDown, from: pts[0], to: pts[len(pts)-1]}
	profile := b.opts.PenDownProfile
	for i := 1; i < len(pts); i++ {
		s := newSegment(pts[i-1], pts[i], motion.PenDown, profile)
		if i > 1 {
			prev := b.segs[len(b.segs)-1]
			theta := kinematics.TurnAngle(prev.dir, s.dir)
			s.maxEntry = kinematics.JunctionVelocity(theta, profile)
		}
		b.segs = append(b.segs, s)
	}
	r.last = len(b.segs)
	b.runs = append(b.runs, r)
}

// addTravel appends a single pen-up move. A zero-length travel still
// yields an empty run so the pen is lifted and dropped between strokes.
func (b *buffer) addTravel(from, to motion.Point) {
	r := run{first: len(b.segs), pen: motion.PenUp, from: from, to: to}
	if to.Sub(from).Length() > zeroLength {
		b.segs = append(b.segs, newSegment(from, to, motion.PenUp, b.opts.PenUpProfile))
	}
	r.last = len(b.segs)
	b.runs = append(b.runs, r)
}

func newSegment(from, to motion.Point, pen motion.PenState, profile motion.MotionProfile) segment {
	d := to.Sub(from)
	length := d.Length()
	return segment{
		start:   from,
		end:     to,
		dir:     d.Mul(1 / length),
		length:  length,
		pen:     pen,
		profile: profile,
	}
}

// forwardPass caps every exit by the profile, the next junction and what
// is reachable from the entry. The run starts at rest.
func (b *buffer) forwardPass(r run) {
	entry := 0.0
	for i := r.first; i < r.last; i++ {
		s := &b.segs[i]
		s.entry = entry
		next := 0.0
		if i+1 < r.last {
			next = b.segs[i+1].maxEntry
		}
		exit := math.Min(s.profile.MaximumVelocity, next)
		exit = math.Min(exit, kinematics.ReachableVelocity(entry, s.profile.Acceleration, s.length))
		s.exit = exit
		entry = exit
	}
}

// backwardPass lowers entries so each segment can decelerate to its exit.
// The run ends at rest.
func (b *buffer) backwardPass(r run) {
	exit := 0.0
	for i := r.last - 1; i >= r.first; i-- {
		s := &b.segs[i]
		s.exit = exit
		s.entry = math.Min(s.entry, kinematics.ReachableVelocity(exit, s.profile.Acceleration, s.length))
		exit = s.entry
	}
}

// block resolves the segment's final velocity profile
func (s *segment) block() Block {
	shape := kinematics.NewTrapezoid(s.entry, s.exit, s.profile.MaximumVelocity, s.profile.Acceleration, s.length)
	return Block{
		Start:         s.start,
		End:           s.end,
		Pen:           s.pen,
		Length:        s.length,
		EntryVelocity: s.entry,
		PeakVelocity:  shape.Vp,
		ExitVelocity:  s.exit,
		Acceleration:  s.profile.Acceleration,
		AccelTime:     shape.AccelTime(),
		CruiseTime:    shape.CruiseTime(),
		DecelTime:     shape.DecelTime(),
		Duration:      shape.Duration(),
	}
}

// distinctPoints drops points that coincide with their predecessor
func distinctPoints(path motion.Path) []motion.Point {
	if len(path) == 0 {
		return nil
	}
	pts := make([]motion.Point, 0, len(path))
	pts = append(pts, path[0])
	for _, pt := range path[1:] {
		if pt.Sub(pts[len(pts)-1]).Length() > zeroLength {
			pts = append(pts, pt)
		}
	}
	return pts
}

func pointCount(paths []motion.Path) int {
	n := 0
	for _, p := range paths {
		n += len(p)
	}
	return n
}
